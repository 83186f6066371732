package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-advisor/internal/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSamplesListsBundledTickets(t *testing.T) {
	out, err := execute(t, "samples")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, out, "TKT-001")
	assert.Contains(t, out, "PASSWORD_ACCESS")
}

func TestHashSecretPrintsVerifiableHash(t *testing.T) {
	out, err := execute(t, "hash-secret", "--cost", "4", "s3cret")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, auth.CompareSecret(hash, "s3cret"))
}

func TestResolveTicket(t *testing.T) {
	ticket, err := resolveTicket("tkt-001", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "TKT-001", ticket.ID)
	assert.NotEmpty(t, ticket.Subject)

	_, err = resolveTicket("TKT-404", "", "", "")
	assert.Error(t, err)

	_, err = resolveTicket("", " ", "", "")
	assert.Error(t, err)

	adhoc, err := resolveTicket("", "VPN down", "cannot connect", "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "TKT-ADHOC", adhoc.ID)
	assert.False(t, adhoc.SubmittedAt.IsZero())
}
