package components

import (
	"encoding/json"
	"log"
)

// DataJSON encodes v, escaped, for a data-* attribute. Falls back to an empty array.
func DataJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("[TEMPLATE] Error encoding data attribute: %v", err)
		return E("[]")
	}
	return E(string(b))
}
