// Package fpsettings loads the picker configuration from
// ~/.filepick/settings.yaml with environment overrides.
package fpsettings

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/datatug/filepick/pkg/fsutils"
)

const UserDir = "~/.filepick"
const settingsFileName = "settings.yaml"

// Sorting bits. Only SortBySize changes what the lister computes.
const (
	SortByName      = 1
	SortByDate      = 2
	SortBySize      = 4
	SortByExtension = 8
	SortDescending  = 1024
)

const (
	EnvExternalStorage = "FILEPICK_EXTERNAL_STORAGE"
	EnvInternalStorage = "FILEPICK_INTERNAL_STORAGE"
	EnvOTGIndex        = "FILEPICK_OTG_DB"
)

const defaultSizeWorkers = 4

var osUserHomeDir = os.UserHomeDir
var osGetenv = os.Getenv
var readYAML = fsutils.ReadYAMLFile

type Settings struct {
	Sorting         int    `yaml:"sorting,omitempty"`
	ShowInfoBubble  bool   `yaml:"show_info_bubble,omitempty"`
	ExternalStorage string `yaml:"external_storage,omitempty"`
	InternalStorage string `yaml:"internal_storage,omitempty"`
	OTGIndex        string `yaml:"otg_index,omitempty"`
	SizeWorkers     int    `yaml:"size_workers,omitempty"`
	LogLevel        string `yaml:"log_level,omitempty"`
}

// ProperSize reports whether directory sizes must be computed recursively.
func (s Settings) ProperSize() bool {
	return s.Sorting&SortBySize != 0
}

func GetUserDir() (string, error) {
	userHomeDir, err := osUserHomeDir()
	if err != nil {
		return UserDir, err
	}
	return filepath.Join(userHomeDir, UserDir[2:]), nil
}

func Defaults() Settings {
	home, err := osUserHomeDir()
	if err != nil || home == "" {
		home = "/"
	}
	return Settings{
		Sorting:         SortByName,
		ExternalStorage: home,
		InternalStorage: home,
		SizeWorkers:     defaultSizeWorkers,
		LogLevel:        "info",
	}
}

// Load reads the settings file in the user dir. A missing file yields defaults.
func Load() (Settings, error) {
	dir, err := GetUserDir()
	if err != nil {
		s := Defaults()
		s.applyEnv()
		return s, err
	}
	return LoadFile(filepath.Join(dir, settingsFileName))
}

// LoadFile reads settings from filePath over the defaults and applies
// environment overrides.
func LoadFile(filePath string) (Settings, error) {
	s := Defaults()
	err := readYAML(filePath, false, &s)
	s.ExternalStorage = fsutils.ExpandHome(s.ExternalStorage)
	s.InternalStorage = fsutils.ExpandHome(s.InternalStorage)
	s.OTGIndex = fsutils.ExpandHome(s.OTGIndex)
	if s.SizeWorkers <= 0 {
		s.SizeWorkers = defaultSizeWorkers
	}
	s.applyEnv()
	return s, err
}

func (s *Settings) applyEnv() {
	override := func(name string, target *string) {
		if v := strings.TrimSpace(osGetenv(name)); v != "" {
			*target = fsutils.ExpandHome(v)
		}
	}
	override(EnvExternalStorage, &s.ExternalStorage)
	override(EnvInternalStorage, &s.InternalStorage)
	override(EnvOTGIndex, &s.OTGIndex)
}
