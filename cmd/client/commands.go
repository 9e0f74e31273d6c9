package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/harrylevesque/forgaile/internal/background"
	"github.com/harrylevesque/forgaile/internal/notify"
	"github.com/harrylevesque/forgaile/internal/sequencer"
	"github.com/harrylevesque/forgaile/internal/sound"
	"github.com/harrylevesque/forgaile/internal/term"
)

func newPlayCmd(c *cli) *cobra.Command {
	var scriptPath string
	var mute bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the sequence in this terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := sequencer.LoadScript(scriptPath)
			if err != nil {
				return err
			}
			acks, err := c.openAcks()
			if err != nil {
				return err
			}
			defer acks.Close()

			player := sound.Silent()
			if !mute {
				player = sound.NewPlayer(c.logger)
			}
			defer player.Close()

			screen, err := tcell.NewScreen()
			if err != nil {
				return err
			}
			if err := screen.Init(); err != nil {
				return err
			}
			defer screen.Fini()

			app, err := term.NewApp(term.Options{
				Screen:     screen,
				Script:     script,
				Notifier:   c.notifier(),
				Acks:       acks,
				AckKey:     c.ackKey(),
				Player:     player,
				Background: background.DefaultConfig(),
				Logger:     c.logger,
			})
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&scriptPath, "script", "", "YAML script overriding the built-in one")
	cmd.Flags().BoolVar(&mute, "mute", false, "never open the audio device")
	return cmd
}

func newNotifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Send the response notification now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := c.notifier()
			if n == nil {
				return notify.ErrMissingConfig
			}
			if err := n.Notify(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "notification sent")
			return nil
		},
	}
}

func newResetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget that this device already responded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			acks, err := c.openAcks()
			if err != nil {
				return err
			}
			defer acks.Close()
			if err := acks.Reset(cmd.Context(), c.ackKey()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "acknowledgement cleared")
			return nil
		},
	}
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether this device already responded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			acks, err := c.openAcks()
			if err != nil {
				return err
			}
			defer acks.Close()
			ok, err := acks.Acknowledged(cmd.Context(), c.ackKey())
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "responded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "not responded")
			return nil
		},
	}
}
