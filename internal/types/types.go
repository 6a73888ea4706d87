package types

import "fmt"

// Regulation is one regulatory act discovered on the BCB portal.
// It is rebuilt on every fetch cycle; only its ID survives across runs
// inside the persisted seen-id history.
type Regulation struct {
	ID          string
	Type        string
	Number      string
	Title       string
	PublishedAt string // YYYY-MM-DD, empty if the source did not supply one
	URL         string
	Abstract    string // ementa, used as summarization input when full text is unavailable
}

// DeriveID builds the stable dedup key for a regulation. Two items with the
// same type and number always map to the same id, regardless of which fetch
// strategy discovered them.
func DeriveID(regType, number string) string {
	return fmt.Sprintf("%s-%s", regType, number)
}
