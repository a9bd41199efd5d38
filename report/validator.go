package report

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schema.json
var rawSchema []byte

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.NewCompiler().Compile(rawSchema)
})

// Validate checks a serialized report against the embedded schema. Errors are
// ordered by the failing keyword.
func Validate(reportBytes []byte) []error {
	schema, err := compileSchema()
	if err != nil {
		return []error{fmt.Errorf("report schema: %w", err)}
	}

	result := schema.Validate(reportBytes)
	if result.IsValid() {
		return nil
	}

	errs := make([]error, 0, len(result.Errors))
	for _, keyword := range slices.Sorted(maps.Keys(result.Errors)) {
		errs = append(errs, fmt.Errorf("%v: %w", keyword, result.Errors[keyword]))
	}
	return errs
}
