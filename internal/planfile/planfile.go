// Package planfile loads execution plans from YAML files. Durations are
// written as Go duration strings ("30s", "2m"), and a missing plan ID is
// filled with a generated UUID so every report has a storage key.
package planfile

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/conduit/pkg/models"
)

// fileRetry mirrors models.RetryOverride with string durations.
type fileRetry struct {
	Preset            string   `yaml:"preset"`
	MaxAttempts       int      `yaml:"max_attempts"`
	BaseDelay         string   `yaml:"base_delay"`
	MaxDelay          string   `yaml:"max_delay"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier"`
	JitterFactor      float64  `yaml:"jitter_factor"`
	RetryableKinds    []string `yaml:"retryable_kinds"`
}

type fileTask struct {
	ID       string         `yaml:"id"`
	Source   string         `yaml:"source"`
	Params   map[string]any `yaml:"params"`
	Timeout  string         `yaml:"timeout"`
	Priority int            `yaml:"priority"`
	Retry    *fileRetry     `yaml:"retry"`
}

type filePlan struct {
	ID        string              `yaml:"id"`
	Tasks     []fileTask          `yaml:"tasks"`
	Groups    [][]string          `yaml:"groups"`
	DependsOn map[string][]string `yaml:"depends_on"`
	Merge     string              `yaml:"merge"`
	Timeout   string              `yaml:"timeout"`
	Retry     *fileRetry          `yaml:"retry"`
}

// Load reads and parses a plan file from disk.
func Load(path string) (*models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	plan, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse plan file %s: %w", path, err)
	}
	return plan, nil
}

// Parse converts YAML plan data into a validated plan.
func Parse(data []byte) (*models.Plan, error) {
	var raw filePlan
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if len(raw.Tasks) == 0 {
		return nil, fmt.Errorf("plan has no tasks")
	}

	plan := &models.Plan{
		ID:        raw.ID,
		Groups:    raw.Groups,
		DependsOn: raw.DependsOn,
		Merge:     models.MergeStrategy(raw.Merge),
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if !plan.Merge.Valid() {
		return nil, fmt.Errorf("unknown merge strategy %q", raw.Merge)
	}

	var err error
	if plan.Timeout, err = parseDuration("timeout", raw.Timeout); err != nil {
		return nil, err
	}
	if plan.Retry, err = convertRetry("plan", raw.Retry); err != nil {
		return nil, err
	}

	for i, ft := range raw.Tasks {
		if ft.ID == "" {
			return nil, fmt.Errorf("task %d has no id", i)
		}
		source := models.Source(ft.Source)
		if ft.Source == "" {
			source = models.SourceModule
		}
		if !source.Valid() {
			return nil, fmt.Errorf("task %s: unknown source %q", ft.ID, ft.Source)
		}

		task := &models.Task{
			ID:       ft.ID,
			Source:   source,
			Params:   ft.Params,
			Priority: ft.Priority,
		}
		if task.Timeout, err = parseDuration(ft.ID+".timeout", ft.Timeout); err != nil {
			return nil, err
		}
		if task.Retry, err = convertRetry(ft.ID, ft.Retry); err != nil {
			return nil, err
		}
		plan.Tasks = append(plan.Tasks, task)
	}

	return plan, nil
}

func convertRetry(scope string, fr *fileRetry) (*models.RetryOverride, error) {
	if fr == nil {
		return nil, nil
	}
	ov := &models.RetryOverride{
		Preset:            fr.Preset,
		MaxAttempts:       fr.MaxAttempts,
		BackoffMultiplier: fr.BackoffMultiplier,
		JitterFactor:      fr.JitterFactor,
		RetryableKinds:    fr.RetryableKinds,
	}
	var err error
	if ov.BaseDelay, err = parseDuration(scope+".retry.base_delay", fr.BaseDelay); err != nil {
		return nil, err
	}
	if ov.MaxDelay, err = parseDuration(scope+".retry.max_delay", fr.MaxDelay); err != nil {
		return nil, err
	}
	return ov, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", field, value)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", field, value)
	}
	return d, nil
}
