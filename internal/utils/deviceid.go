package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// DeviceScope returns a short stable id for this machine, used to scope the terminal client's
// acknowledgement flag. It falls back to the hostname when no hardware id is readable.
func DeviceScope() string {
	ids, err := GetDeviceFingerprints()
	if err != nil || len(ids) == 0 {
		host, herr := os.Hostname()
		if herr != nil {
			return "local"
		}
		ids = []string{host}
	}
	sum := sha256.Sum256([]byte(strings.Join(ids, "|")))
	return hex.EncodeToString(sum[:8])
}

// GetDeviceFingerprints returns the hardware ids available on this platform.
func GetDeviceFingerprints() ([]string, error) {
	switch runtime.GOOS {
	case "darwin":
		return getMacOSUUID()
	case "linux":
		return getLinuxUUID()
	case "windows":
		return getWindowsUUID()
	default:
		return nil, errors.New("unsupported platform: " + runtime.GOOS)
	}
}

func getMacOSUUID() ([]string, error) {
	out, err := exec.Command("ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "IOPlatformUUID") {
			if parts := strings.Split(line, "\""); len(parts) >= 4 {
				return []string{parts[3]}, nil
			}
		}
	}
	return nil, errors.New("no IOPlatformUUID found")
}

func getLinuxUUID() ([]string, error) {
	for _, p := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id", "/sys/class/dmi/id/product_uuid"} {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return []string{id}, nil
		}
	}
	return nil, errors.New("no machine id found on Linux")
}

func getWindowsUUID() ([]string, error) {
	out, err := exec.Command("wmic", "csproduct", "get", "UUID").Output()
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		str := strings.TrimSpace(line)
		if str != "" && !strings.EqualFold(str, "UUID") {
			return []string{str}, nil
		}
	}
	return nil, errors.New("no hardware UUID found on Windows")
}
