package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ViewSpec describes one rendering view over the cleaned dataset.
// Each view calibrates its color/axis range against its own column.
type ViewSpec struct {
	Name          string   `yaml:"name" json:"name"`
	Title         string   `yaml:"title" json:"title"`
	Column        string   `yaml:"column" json:"column"`
	TimestampMode string   `yaml:"timestamp_mode" json:"timestamp_mode"` // date, datetime
	YMin          *float64 `yaml:"y_min,omitempty" json:"y_min,omitempty"`
	YMax          *float64 `yaml:"y_max,omitempty" json:"y_max,omitempty"`
	ColorScale    string   `yaml:"color_scale" json:"color_scale"`
}

type viewsFile struct {
	Views []ViewSpec `yaml:"views"`
}

// Timestamp modes accepted in view definitions
const (
	ModeDate     = "date"
	ModeDateTime = "datetime"
)

// DefaultViews returns the built-in views
func DefaultViews() []ViewSpec {
	yMin, yMax := 50.0, 90.0
	return []ViewSpec{
		{
			Name:          "overall",
			Title:         "Sleep scores",
			Column:        "overall_score",
			TimestampMode: ModeDateTime,
			YMin:          &yMin,
			YMax:          &yMax,
			ColorScale:    "Portland_r",
		},
		{
			Name:          "deep_sleep",
			Title:         "Deep sleep (minutes)",
			Column:        "deep_sleep_in_minutes",
			TimestampMode: ModeDate,
			ColorScale:    "Portland_r",
		},
	}
}

// LoadViews reads view definitions from a YAML file.
// An empty path returns DefaultViews. Entries in the file replace the
// built-in view of the same name; new names are appended.
// 알 수 없는 필드는 즉시 에러 (KnownFields)
func LoadViews(path string) ([]ViewSpec, error) {
	views := DefaultViews()
	if path == "" {
		return views, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read views file: %w", err)
	}

	var file viewsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode views file: %w", err)
	}

	seen := make(map[string]bool)
	for _, v := range file.Views {
		if err := validateView(v); err != nil {
			return nil, err
		}
		if seen[v.Name] {
			return nil, ValidationError{Field: "views." + v.Name, Message: "duplicate view name"}
		}
		seen[v.Name] = true

		if v.ColorScale == "" {
			v.ColorScale = "Portland_r"
		}
		if v.Title == "" {
			v.Title = v.Name
		}

		replaced := false
		for i := range views {
			if views[i].Name == v.Name {
				views[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			views = append(views, v)
		}
	}

	return views, nil
}

// FindView returns the view with the given name
func FindView(views []ViewSpec, name string) (ViewSpec, bool) {
	for _, v := range views {
		if v.Name == name {
			return v, true
		}
	}
	return ViewSpec{}, false
}

// ValidationError reports an invalid field in a views file
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validateView(v ViewSpec) error {
	if v.Name == "" {
		return ValidationError{"views.name", "required"}
	}
	if v.Column == "" {
		return ValidationError{"views." + v.Name + ".column", "required"}
	}
	switch v.TimestampMode {
	case ModeDate, ModeDateTime:
	case "":
		return ValidationError{"views." + v.Name + ".timestamp_mode", "required"}
	default:
		return ValidationError{"views." + v.Name + ".timestamp_mode", "must be one of: date, datetime"}
	}
	if v.YMin != nil && v.YMax != nil && *v.YMin >= *v.YMax {
		return ValidationError{"views." + v.Name, "y_min must be < y_max"}
	}
	return nil
}
