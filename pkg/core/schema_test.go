package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersSchema() Schema {
	return Schema{
		{Name: "id", Field: Field{Type: Int, PrimaryKey: true}},
		{Name: "name", Field: Field{Type: Varchar(50)}},
		{Name: "bio", Field: Field{Type: Text, Nullable: true}},
	}
}

func TestSchema_Lookup(t *testing.T) {
	s := usersSchema()

	assert.Equal(t, []string{"id", "name", "bio"}, s.Names())
	assert.Equal(t, 1, s.Index("name"))
	assert.Equal(t, -1, s.Index("missing"))

	f, ok := s.Lookup("bio")
	require.True(t, ok)
	assert.True(t, f.Field.Nullable)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)
}

func TestSchema_Without(t *testing.T) {
	s := usersSchema()
	out := s.Without("name")

	assert.Equal(t, []string{"id", "bio"}, out.Names())
	assert.Len(t, s, 3, "original schema must not be modified")
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr bool
	}{
		{"valid", usersSchema(), false},
		{"empty", Schema{}, true},
		{"empty name", Schema{{Name: "", Field: Field{Type: Int}}}, true},
		{"duplicate", Schema{{Name: "a", Field: Field{Type: Int}}, {Name: "a", Field: Field{Type: Text}}}, true},
		{"incorrect type", Schema{{Name: "a", Field: Field{Type: Incorrect}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, KindValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}
