// Package fpstate remembers the last picked path between runs.
package fpstate

import (
	"os"
	"path/filepath"
	"time"

	"github.com/datatug/filepick/pkg/fsutils"
	"github.com/rs/zerolog"
)

const defaultStateDir = "~/.filepick"
const stateFileName = "filepick-state.json"

var stateDirPath = fsutils.ExpandHome(defaultStateDir)

var logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	logger = l
}

type State struct {
	LastPick   string    `json:"last_pick,omitempty"`
	LastDir    string    `json:"last_dir,omitempty"`
	PickedFile bool      `json:"picked_file,omitempty"`
	PickedAt   time.Time `json:"picked_at,omitzero"`
}

func getStateFilePath() string {
	return filepath.Join(stateDirPath, stateFileName)
}

var readJSON = fsutils.ReadJSONFile
var writeJSON = fsutils.WriteJSONFile
var timeNow = time.Now

func GetState() (*State, error) {
	var state State
	return &state, readJSON(getStateFilePath(), false, &state)
}

// GetLastDir returns the directory of the last pick, or "" if none was saved.
func GetLastDir() string {
	var state State
	_ = readJSON(getStateFilePath(), false, &state)
	return state.LastDir
}

// SaveLastPick records a successful pick. dir is the directory that was
// browsed when the pick was made.
func SaveLastPick(path, dir string, pickedFile bool) {
	saveStateValue(func(state *State) {
		state.LastPick = path
		state.LastDir = dir
		state.PickedFile = pickedFile
		state.PickedAt = timeNow()
	})
}

func saveStateValue(f func(state *State)) {
	filePath := getStateFilePath()
	var state State
	if err := readJSON(filePath, false, &state); err != nil {
		logger.Warn().Err(err).Str("file", filePath).Msg("failed to read state file")
	}

	if dirInfo, err := os.Stat(stateDirPath); err != nil {
		if os.IsNotExist(err) {
			if err = os.MkdirAll(stateDirPath, os.ModePerm); err != nil {
				logger.Error().Err(err).Msg("failed to create state directory")
				return
			}
		}
	} else if !dirInfo.IsDir() {
		logger.Error().Str("path", stateDirPath).Msg("state path is not a directory")
		return
	}

	f(&state)
	if err := writeJSON(filePath, state); err != nil {
		logger.Error().Err(err).Msg("failed to write state file")
	}
}
