package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotJSONPreservesOrder(t *testing.T) {
	s := NewSnapshot()
	s.Set(FieldRegistered, Bool(true))
	s.Set(FieldRegistrar, String("Example Registrar"))
	s.Set(FieldWhoisServer, Null())
	s.Set(FieldNameServers, List([]string{"NS2.example.net", "ns1.example.net"}))
	s.Set(FieldCheckTime, String("2025-01-01T00:00:00Z"))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"registered": true,
		"registrar": "Example Registrar",
		"whois_server": null,
		"name_servers": ["ns1.example.net", "ns2.example.net"],
		"check_time": "2025-01-01T00:00:00Z"
	}`, string(data))

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, s.Keys(), decoded.Keys())
	for _, key := range s.Keys() {
		want, _ := s.Get(key)
		got, _ := decoded.Get(key)
		require.True(t, want.Equal(got), "field %s", key)
	}
}

func TestSnapshotSetOverwriteKeepsPosition(t *testing.T) {
	s := NewSnapshot()
	s.Set("a", String("1"))
	s.Set("b", String("2"))
	s.Set("a", String("3"))

	require.Equal(t, []string{"a", "b"}, s.Keys())
	v, _ := s.Get("a")
	require.Equal(t, "3", v.Str())
}

func TestSnapshotNilSafe(t *testing.T) {
	var s *Snapshot
	_, ok := s.Get(FieldError)
	require.False(t, ok)
	require.False(t, s.IsError())
	require.Equal(t, 0, s.Len())
}

func TestChangeSetJSON(t *testing.T) {
	cs := NewChangeSet()
	cs.Set(FieldRegistrar, Change{From: String("A"), To: String("B")})
	cs.Set(FieldDNSSEC, Change{From: Null(), To: String("True")})

	data, err := json.Marshal(cs)
	require.NoError(t, err)
	require.Equal(t, `{"registrar":{"from":"A","to":"B"},"dnssec":{"from":null,"to":"True"}}`, string(data))

	var decoded ChangeSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, []string{FieldRegistrar, FieldDNSSEC}, decoded.Keys())
	dnssec, _ := decoded.Get(FieldDNSSEC)
	require.True(t, dnssec.From.IsNull())
}

func TestValueRendering(t *testing.T) {
	require.Equal(t, NullText, Null().String())
	require.Equal(t, "True", Bool(true).String())
	require.Equal(t, "[a, b]", List([]string{"B", "a"}).String())
	require.False(t, String("x").Equal(Null()))
	require.False(t, List([]string{"a"}).Equal(List([]string{"a", "b"})))
}

func TestRegistryRecordDomainName(t *testing.T) {
	tests := []struct {
		name   string
		record *RegistryRecord
		ok     bool
	}{
		{name: "nil", record: nil},
		{name: "missing", record: &RegistryRecord{Fields: map[string]any{}}},
		{name: "blank", record: &RegistryRecord{Fields: map[string]any{FieldDomainName: " "}}},
		{name: "string", record: &RegistryRecord{Fields: map[string]any{FieldDomainName: "example.com"}}, ok: true},
		{name: "list", record: &RegistryRecord{Fields: map[string]any{FieldDomainName: []string{"EXAMPLE.COM", "example.com"}}}, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.record.DomainName()
			require.Equal(t, tt.ok, ok)
		})
	}
}
