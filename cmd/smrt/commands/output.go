package commands

import (
	"encoding/json"
	"io"

	"github.com/teranos/smrt/errors"
)

// outputJSON writes v as indented JSON
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}
