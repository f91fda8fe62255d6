package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinwang15/sshdedit"
)

const sample = `
target: /etc/ssh/sshd_config
resources:
  - name: no-root
    key: PermitRootLogin
    value: "no"
    comment: managed
  - key: ListenAddress
    value: ["0.0.0.0", "::"]
  - key: Port
    value: 2222
    condition: User git Host *.lan
  - key: AllowGroups
    value: [wheel]
    arrayAppend: true
  - key: X11Forwarding
    condition: User anoncvs
    ensure: absent
  - key: Banner
    value: /etc/issue
    target: /etc/ssh/sshd_config.d/banner.conf
`

func TestLoad(t *testing.T) {
	m, err := Load([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "/etc/ssh/sshd_config", m.Target)
	require.Len(t, m.Resources, 6)
	assert.Equal(t, Values{"no"}, m.Resources[0].Value)
	assert.Equal(t, Values{"0.0.0.0", "::"}, m.Resources[1].Value)
	assert.Equal(t, Values{"2222"}, m.Resources[2].Value)
	assert.True(t, m.Resources[3].ArrayAppend)
	assert.Equal(t, EnsureAbsent, m.Resources[4].Ensure)
	assert.Nil(t, m.Resources[4].Value)
}

func TestLoadStrict(t *testing.T) {
	_, err := Load([]byte("resources:\n  - key: Port\n    valeu: \"22\"\n"))
	assert.Error(t, err, "unknown field must be rejected")

	_, err = Load([]byte("resources:\n  - key: Port\n    value: {a: b}\n"))
	assert.Error(t, err, "a map is not a value")
}

func TestBatches(t *testing.T) {
	m, err := Load([]byte(sample))
	require.NoError(t, err)

	batches, err := m.Batches("/unused")
	require.NoError(t, err)
	require.Len(t, batches, 2)

	main := batches[0]
	assert.Equal(t, "/etc/ssh/sshd_config", main.Target)
	require.Len(t, main.Items, 5)
	assert.Equal(t, sshdedit.Desired{Key: "PermitRootLogin", Values: []string{"no"}, Comment: "managed"}, main.Items[0])
	assert.True(t, main.Items[2].Condition.Equal(sshdedit.MustCondition("Host *.lan User git")))
	assert.True(t, main.Items[3].Append)
	assert.True(t, main.Items[4].Absent)

	assert.Equal(t, "/etc/ssh/sshd_config.d/banner.conf", batches[1].Target)
	assert.Equal(t, "Banner", batches[1].Items[0].Key)
}

func TestBatchesDefaultTarget(t *testing.T) {
	m, err := Load([]byte("resources:\n  - key: UsePAM\n    value: \"yes\"\n"))
	require.NoError(t, err)

	batches, err := m.Batches("/tmp/sshd_config")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "/tmp/sshd_config", batches[0].Target)
}

func TestValidateDuplicates(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"same name", `
resources:
  - {name: a, key: Port, value: "22"}
  - {name: a, key: Banner, value: none}
`},
		{"same address", `
resources:
  - {key: PermitRootLogin, value: "no"}
  - {key: permitrootlogin, ensure: absent}
`},
		{"same condition in another order", `
resources:
  - {key: Banner, value: none, condition: Host a User b}
  - {key: Banner, value: x, condition: user b host a}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Load([]byte(tt.yaml))
			require.NoError(t, err)

			err = m.Validate()
			var dup *DuplicateResourceError
			require.True(t, errors.As(err, &dup), "expected DuplicateResourceError, got %v", err)
			assert.Equal(t, 0, dup.First)
			assert.Equal(t, 1, dup.Second)
		})
	}
}

func TestValidateDistinctTargets(t *testing.T) {
	m, err := Load([]byte(`
resources:
  - {key: Port, value: "22", target: /a}
  - {key: Port, value: "22", target: /b}
`))
	require.NoError(t, err)
	assert.NoError(t, m.Validate())
}

func TestValidateErrors(t *testing.T) {
	for _, in := range []string{
		"resources:\n  - {value: x}\n",
		"resources:\n  - {key: Port, value: \"22\", ensure: maybe}\n",
		"resources:\n  - {key: Port, value: \"22\", condition: Shell bash}\n",
	} {
		m, err := Load([]byte(in))
		require.NoError(t, err)
		assert.Error(t, m.Validate(), in)
	}
}

func TestApplyOverlay(t *testing.T) {
	m, err := Load([]byte(sample))
	require.NoError(t, err)

	err = m.ApplyOverlay([]byte(`
- op: replace
  path: /resources/0/value
  value: prohibit-password
- op: remove
  path: /resources/5
- op: add
  path: /resources/-
  value: {key: MaxSessions, value: "4"}
`))
	require.NoError(t, err)

	require.Len(t, m.Resources, 6)
	assert.Equal(t, Values{"prohibit-password"}, m.Resources[0].Value)
	assert.Equal(t, "MaxSessions", m.Resources[5].Key)
	assert.Equal(t, Values{"0.0.0.0", "::"}, m.Resources[1].Value)
	assert.Equal(t, "User git Host *.lan", m.Resources[2].Condition)
}

func TestApplyOverlayJSON(t *testing.T) {
	m, err := Load([]byte(sample))
	require.NoError(t, err)

	err = m.ApplyOverlay([]byte(`[{"op": "replace", "path": "/target", "value": "/srv/sshd_config"}]`))
	require.NoError(t, err)
	assert.Equal(t, "/srv/sshd_config", m.Target)
}

func TestApplyOverlayErrors(t *testing.T) {
	m, err := Load([]byte(sample))
	require.NoError(t, err)

	assert.Error(t, m.ApplyOverlay([]byte(`[{"op": "remove", "path": "/resources/42"}]`)))
	assert.Error(t, m.ApplyOverlay([]byte(`[{"op": "add", "path": "/resources/0/bogus", "value": 1}]`)))
	assert.Len(t, m.Resources, 6, "a failed overlay must leave the manifest untouched")
}
