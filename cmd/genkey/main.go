package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/harrylevesque/forgaile/internal/config"
	"github.com/harrylevesque/forgaile/internal/crypto"
	"github.com/harrylevesque/forgaile/internal/utils"
)

func main() {
	out := flag.String("out", filepath.Join(utils.GetDataDir(), config.CookieKeyFile), "where to write the cookie key")
	flag.Parse()

	if err := generate(*out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Cookie key written to %s\n", *out)
}

func generate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := crypto.WriteKeyFile(path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists. Refusing to overwrite", path)
		}
		return err
	}
	return nil
}
