package output

import (
	"encoding/json"

	"github.com/namelens/domainwatch/internal/notify"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatCheck renders a check view as JSON.
func (f *JSONFormatter) FormatCheck(view *CheckView) (string, error) {
	if view == nil {
		return "", nil
	}
	return f.marshal(view)
}

// FormatDispatch renders dispatch outcomes as a JSON array.
func (f *JSONFormatter) FormatDispatch(result notify.DispatchResult) (string, error) {
	if result == nil {
		result = notify.DispatchResult{}
	}
	return f.marshal(result)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
