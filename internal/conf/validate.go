// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"strconv"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateDataSettings(&settings.Data); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateClassSettings(&settings.Classes); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateExportSettings(&settings.Export); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDataSettings(data *DataSettings) error {
	if data.OutputDir == "" {
		return errors.New("data output directory cannot be empty")
	}
	switch data.Layout {
	case "flat", "session":
	default:
		return fmt.Errorf("data layout must be \"flat\" or \"session\", got %q", data.Layout)
	}
	if data.Image.Format != "jpg" {
		return fmt.Errorf("unsupported image format %q, only \"jpg\" is supported", data.Image.Format)
	}
	if data.Image.Quality < 1 || data.Image.Quality > 100 {
		return fmt.Errorf("image quality must be between 1 and 100, got %d", data.Image.Quality)
	}
	return nil
}

func validateClassSettings(classes *ClassSettings) error {
	if classes.Pet == "" || classes.Can == "" || classes.Foreign == "" {
		return errors.New("all three class schema paths (pet, can, foreign) must be set")
	}
	return nil
}

func validateExportSettings(export *ExportSettings) error {
	if len(export.CSV.Delimiter) != 1 {
		return fmt.Errorf("csv delimiter must be a single character, got %q", export.CSV.Delimiter)
	}
	switch export.CSV.HeaderPolicy {
	case "fixed", "rewrite":
	default:
		return fmt.Errorf("csv header policy must be \"fixed\" or \"rewrite\", got %q", export.CSV.HeaderPolicy)
	}
	if export.CSV.BoolTrue == "" || export.CSV.BoolFalse == "" {
		return errors.New("csv boolean tokens cannot be empty")
	}
	if export.CSV.BoolTrue == export.CSV.BoolFalse {
		return errors.New("csv boolean tokens must differ")
	}
	return nil
}

func validateWebServerSettings(ws *WebServerSettings) error {
	if !ws.Enabled {
		return nil
	}
	port, err := strconv.Atoi(ws.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid webserver port: %s", ws.Port)
	}
	return nil
}
