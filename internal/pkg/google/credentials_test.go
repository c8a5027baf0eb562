package google

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsJSON_Raw(t *testing.T) {
	b, err := credentialsJSON(` {"type":"service_account"} `, "")
	assert.Nil(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(b))
}

func TestCredentialsJSON_Base64(t *testing.T) {
	b, err := credentialsJSON(base64.StdEncoding.EncodeToString([]byte(`{"a":1}`)), "")
	assert.Nil(t, err)
	assert.Equal(t, `{"a":1}`, string(b))
}

func TestCredentialsJSON_File(t *testing.T) {
	f := filepath.Join(t.TempDir(), "c.json")
	require.Nil(t, os.WriteFile(f, []byte(`{"b":1}`), 0600))
	b, err := credentialsJSON("", f)
	assert.Nil(t, err)
	assert.Equal(t, `{"b":1}`, string(b))
}

func TestCredentialsJSON_Fail(t *testing.T) {
	_, err := credentialsJSON("", "")
	assert.ErrorIs(t, err, errc.ErrConfiguration)
	_, err = credentialsJSON("!!!", "")
	assert.NotNil(t, err)
	_, err = credentialsJSON("", filepath.Join(t.TempDir(), "missing.json"))
	assert.NotNil(t, err)
}
