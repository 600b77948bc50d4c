package canonical

import "fmt"

// MappingSchemaError reports an LLM mapping response that could not be
// parsed or failed shape validation after all retries.
type MappingSchemaError struct {
	Attempts int
	Reason   string
}

func (e *MappingSchemaError) Error() string {
	return fmt.Sprintf("mapping response invalid after %d attempts: %s", e.Attempts, e.Reason)
}
