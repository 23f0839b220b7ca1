package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestEnv_WriteReadFile(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFileString("nested/dir/config.yaml", "server:\n  port: 1\n")
	assert.True(t, env.FileExists("nested/dir/config.yaml"))
	assert.Equal(t, "server:\n  port: 1\n", env.ReadFileString("nested/dir/config.yaml"))
	assert.False(t, env.FileExists("missing.yaml"))
}

func TestTestEnv_PathWithinSandbox(t *testing.T) {
	env := NewTestEnv(t)

	assert.Equal(t, env.RootDir(), env.Path())
	assert.True(t, env.isWithinSandbox(env.Path("a", "b")))
	assert.False(t, env.isWithinSandbox("/etc/passwd"))
}

func TestTestEnv_Chdir(t *testing.T) {
	env := NewTestEnv(t)
	env.Chdir()

	env.WriteFileString(".env", "X=1")
	_, err := os.Stat(".env")
	assert.NoError(t, err)
}

func TestTestEnv_UnsetEnv(t *testing.T) {
	t.Setenv("POSTERRATINGS_TESTUTIL", "value")

	t.Run("unset", func(t *testing.T) {
		env := NewTestEnv(t)
		env.UnsetEnv("POSTERRATINGS_TESTUTIL")
		_, ok := os.LookupEnv("POSTERRATINGS_TESTUTIL")
		assert.False(t, ok)
	})

	assert.Equal(t, "value", os.Getenv("POSTERRATINGS_TESTUTIL"))
}

func TestStubDoer(t *testing.T) {
	doer := &StubDoer{Body: `{"ok":true}`}

	req := httptest.NewRequest(http.MethodGet, "http://example.test/a", nil)
	resp, err := doer.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	require.Len(t, doer.Requests(), 1)
	assert.Equal(t, "/a", doer.Requests()[0].URL.Path)

	failing := &StubDoer{Err: io.ErrUnexpectedEOF}
	_, err = failing.Do(req)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}
