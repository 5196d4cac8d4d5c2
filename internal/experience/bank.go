package experience

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/bullet-ranker/internal/schemas"
	"github.com/jonathan/bullet-ranker/internal/types"
)

// LoadExperienceBank loads an experience bank from a JSON file, validating
// it against the schema first and normalizing the bullets.
func LoadExperienceBank(path string) (*types.ExperienceBank, error) {
	if err := schemas.ValidateExperienceBankFile(path); err != nil {
		return nil, &LoadError{
			Message: fmt.Sprintf("schema validation failed for %s", path),
			Cause:   err,
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			Message: fmt.Sprintf("failed to read file %s", path),
			Cause:   err,
		}
	}

	var bank types.ExperienceBank
	if err := json.Unmarshal(content, &bank); err != nil {
		return nil, &LoadError{
			Message: "failed to unmarshal JSON",
			Cause:   err,
		}
	}

	if err := NormalizeExperienceBank(&bank); err != nil {
		return nil, err
	}

	return &bank, nil
}
