package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	local := LocalAddress("sys")
	assert.Equal(t, "actuator://sys", local.String())
	assert.True(t, local.HasLocalScope())

	remote, err := ParseAddress("actuator://sys@10.0.0.1:2552")
	require.NoError(t, err)
	assert.Equal(t, Address{Protocol: "actuator", System: "sys", Host: "10.0.0.1", Port: 2552}, remote)
	assert.False(t, remote.HasLocalScope())
	assert.Equal(t, "actuator://sys@10.0.0.1:2552", remote.String())

	for _, bad := range []string{"", "sys", "actuator://", "actuator://@host", "actuator://sys@", "actuator://sys@host:0", "actuator://sys@host:x"} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func TestPathNavigation(t *testing.T) {
	root := RootPath(LocalAddress("sys"))
	user := root.Child("user")
	worker := user.Child("worker")

	assert.True(t, root.IsRoot())
	assert.Equal(t, root, root.Parent())
	assert.Equal(t, "/", root.Name())
	assert.Equal(t, 0, root.Depth())
	assert.Nil(t, root.Elements())
	assert.Equal(t, "actuator://sys/", root.String())

	assert.Equal(t, "worker", worker.Name())
	assert.Equal(t, 2, worker.Depth())
	assert.Equal(t, []string{"user", "worker"}, worker.Elements())
	assert.Equal(t, user, worker.Parent())
	assert.Equal(t, "/user/worker", worker.ToStringWithoutAddress())
	assert.Equal(t, "actuator://sys/user/worker", worker.String())

	assert.True(t, worker.IsDescendantOf(user))
	assert.True(t, worker.IsDescendantOf(root))
	assert.False(t, worker.IsDescendantOf(worker))
	assert.False(t, user.IsDescendantOf(worker))
	assert.False(t, root.Child("userx").IsDescendantOf(user))
	assert.False(t, worker.IsDescendantOf(RootPath(LocalAddress("other")).Child("user")))

	// 路径是值类型，可以直接比较
	assert.Equal(t, worker, root.Child("user").Child("worker"))
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("actuator://sys/user/a/b")
	require.NoError(t, err)
	assert.Equal(t, RootPath(LocalAddress("sys")).Child("user").Child("a").Child("b"), p)

	root, err := ParsePath("actuator://sys")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	slash, err := ParsePath("actuator://sys/")
	require.NoError(t, err)
	assert.Equal(t, root, slash)

	for _, bad := range []string{"/user/a", "actuator://sys/user//a", "actuator://sys/user/a b"} {
		_, err := ParsePath(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"worker", true},
		{"worker-1_a.b", true},
		{"a%20b", true},
		{"user@host", true},
		{"", false},
		{"$anon", false},
		{"a/b", false},
		{"a b", false},
		{"a%2", false},
		{"a%zz", false},
		{"名字", false},
	}
	for _, tt := range tests {
		err := ValidateName(tt.name)
		if tt.valid {
			assert.NoError(t, err, tt.name)
		} else {
			assert.ErrorIs(t, err, ErrInvalidActorName, tt.name)
		}
	}
}
