package audit

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// AlertType classifies an alert.
type AlertType string

const (
	AlertSecurity AlertType = "security"
	AlertBuild    AlertType = "build"
	AlertSystem   AlertType = "system"
)

// Alert is one immutable alert record.
type Alert struct {
	Timestamp string    `json:"timestamp" yaml:"timestamp"`           // TimestampFormat, UTC.
	Message   string    `json:"alert" yaml:"alert"`                   // Human-readable message.
	Type      AlertType `json:"type,omitempty" yaml:"type,omitempty"` // Empty in documents written by older tools.

	// Extra holds members written by other tools, kept across rewrites.
	Extra map[string]json.RawMessage `json:"-" yaml:"-"`
}

// BuildStatus is the outcome of one build run.
type BuildStatus string

const (
	BuildSucceeded BuildStatus = "success"
	BuildFailed    BuildStatus = "failed"
)

// SourceType says how the build input was acquired.
type SourceType string

const (
	SourceFile       SourceType = "file"
	SourceRepository SourceType = "repository"
)

// BuildEvent records one build run, successful or not.
type BuildEvent struct {
	ID           string      `json:"id" yaml:"id"`
	Timestamp    string      `json:"timestamp" yaml:"timestamp"`
	Filename     string      `json:"filename" yaml:"filename"`
	SourceType   SourceType  `json:"source_type" yaml:"source_type"`
	SourceURL    string      `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	Status       BuildStatus `json:"status" yaml:"status"`
	Hash         string      `json:"hash,omitempty" yaml:"hash,omitempty"`
	Root         string      `json:"root,omitempty" yaml:"root,omitempty"` // Absolute path of the hashed tree.
	FileCount    int         `json:"file_count" yaml:"file_count"`
	Skipped      []string    `json:"skipped,omitempty" yaml:"skipped,omitempty"` // Paths left out under the skip policy.
	BuildTimeMS  int64       `json:"build_time_ms" yaml:"build_time_ms"`
	ErrorMessage string      `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	Extra map[string]json.RawMessage `json:"-" yaml:"-"`
}

// Document is the persisted audit log: builds and alerts in append order.
type Document struct {
	Builds []BuildEvent `json:"builds" yaml:"builds"`
	Alerts []Alert      `json:"alerts" yaml:"alerts"`

	Extra map[string]json.RawMessage `json:"-" yaml:"-"`
}

// emptyDocument returns a document whose sequences marshal as [] rather
// than null.
func emptyDocument() *Document {
	return &Document{Builds: []BuildEvent{}, Alerts: []Alert{}}
}

func (a *Alert) UnmarshalJSON(data []byte) error {
	type plain Alert
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownMembers(data, reflect.TypeOf(p))
	if err != nil {
		return err
	}
	*a = Alert(p)
	a.Extra = extra
	return nil
}

func (a Alert) MarshalJSON() ([]byte, error) {
	type plain Alert
	return marshalWithExtra(plain(a), a.Extra)
}

func (e *BuildEvent) UnmarshalJSON(data []byte) error {
	type plain BuildEvent
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownMembers(data, reflect.TypeOf(p))
	if err != nil {
		return err
	}
	*e = BuildEvent(p)
	e.Extra = extra
	return nil
}

func (e BuildEvent) MarshalJSON() ([]byte, error) {
	type plain BuildEvent
	return marshalWithExtra(plain(e), e.Extra)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownMembers(data, reflect.TypeOf(p))
	if err != nil {
		return err
	}
	*d = Document(p)
	d.Extra = extra
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	return marshalWithExtra(plain(d), d.Extra)
}

// unknownMembers returns the members of the JSON object data that no field
// of t claims, or nil when there are none.
func unknownMembers(data []byte, t reflect.Type) (map[string]json.RawMessage, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		// Field matching in encoding/json ignores case.
		for k := range members {
			if strings.EqualFold(k, name) {
				delete(members, k)
			}
		}
	}
	if len(members) == 0 {
		return nil, nil
	}
	return members, nil
}

// marshalWithExtra encodes v and appends the extra members, in key order,
// that v does not already carry.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var own map[string]json.RawMessage
	if err := json.Unmarshal(data, &own); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if _, ok := own[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, k := range keys {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
