package server

import (
	"encoding/json"
	"io"
)

func encodeJSON(w io.Writer, v interface{}) {
	json.NewEncoder(w).Encode(v)
}
