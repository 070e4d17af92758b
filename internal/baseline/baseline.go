package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopsignal/shopsignal/internal/models"
)

const (
	// DefaultPath is used when --update-baseline is enabled without an explicit --baseline path.
	DefaultPath = ".shopsignal-baseline.json"
	fileVersion = 1
)

// Set maps product ids to the interest level recorded at baseline time.
type Set map[string]models.InterestLevel

// File is the persisted baseline JSON payload.
type File struct {
	Version int               `json:"version"`
	Levels  map[string]string `json:"levels"`
}

// Load reads a baseline file. Missing files return an empty set.
func Load(path string) (Set, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("baseline path is empty")
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("read baseline file: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse baseline file: %w", err)
	}
	if file.Version != 0 && file.Version != fileVersion {
		return nil, fmt.Errorf("unsupported baseline version: %d", file.Version)
	}

	set := Set{}
	for productID, level := range file.Levels {
		if productID == "" || level == "" {
			continue
		}
		set[productID] = models.InterestLevel(level)
	}

	return set, nil
}

// Save writes a baseline file.
func Save(path string, set Set) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return errors.New("baseline path is empty")
	}

	dir := filepath.Dir(trimmed)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create baseline directory: %w", err)
		}
	}

	levels := make(map[string]string, len(set))
	for productID, level := range set {
		if productID == "" {
			continue
		}
		levels[productID] = string(level)
	}

	payload := File{
		Version: fileVersion,
		Levels:  levels,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline file: %w", err)
	}

	if err := os.WriteFile(trimmed, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write baseline file: %w", err)
	}

	return nil
}

// Record builds a baseline set from a completed scoring run.
func Record(scores []models.InterestScore) Set {
	set := Set{}
	for _, score := range scores {
		if score.ProductID == "" {
			continue
		}
		set[score.ProductID] = score.InterestLevel
	}
	return set
}

// Diff returns the products whose interest level moved since the
// baseline was recorded. Products absent from the baseline are new and
// not reported as changes.
func Diff(scores []models.InterestScore, known Set) []models.LevelChange {
	if len(known) == 0 {
		return nil
	}

	var changes []models.LevelChange
	for _, score := range scores {
		previous, ok := known[score.ProductID]
		if !ok || previous == score.InterestLevel {
			continue
		}
		changes = append(changes, models.LevelChange{
			ProductID: score.ProductID,
			Previous:  previous,
			Current:   score.InterestLevel,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].ProductID < changes[j].ProductID
	})

	return changes
}
