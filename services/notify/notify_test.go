package notifysvc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleNotifier(t *testing.T) {
	var out bytes.Buffer
	n := NewConsoleNotifier(&out, nil)

	n.Success("grade saved")
	n.Error("Could not save grade: network error")

	assert.Equal(t, "✓ grade saved\n✗ Could not save grade: network error\n", out.String())
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Success("a")
	r.Error("b")

	assert.Equal(t, []Notification{{KindSuccess, "a"}, {KindError, "b"}}, r.All())

	r.Reset()
	assert.Empty(t, r.All())
}
