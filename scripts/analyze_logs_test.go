package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const infoLog = `INFO: 2026/10/17 09:00:01 auth_service.go:101: User registered with ID: 1
INFO: 2026/10/17 09:00:05 auth_service.go:150: User logged in with ID: 1
INFO: 2026/10/17 09:01:00 payment_service.go:230: Transaction TXN-0A1B2C3D4E5F6A7B created on link consultation-x1y2z3 via MTN_MOMO
INFO: 2026/10/17 09:01:02 payment_service.go:260: Idempotent replay of TXN-0A1B2C3D4E5F6A7B
INFO: 2026/10/17 09:02:00 payment_service.go:365: Transaction TXN-0A1B2C3D4E5F6A7B moved from PROCESSING to SUCCESS
INFO: 2026/10/17 09:02:00 receipt_service.go:170: Receipt RCP-20261017-AB12CD issued for transaction TXN-0A1B2C3D4E5F6A7B
INFO: 2026/10/17 09:02:03 webhook.go:95: Duplicate webhook MTN_MOMO/evt-1 acknowledged
`

const errorLog = `ERROR: 2026/10/17 09:00:03 auth_service.go:138: Invalid password for user ID: 1
ERROR: 2026/10/17 09:00:04 auth_service.go:131: Login attempt for unknown email
ERROR: 2026/10/17 09:03:00 webhook.go:59: Rejected webhook from wave: bad signature
ERROR: 2026/10/17 09:04:00 payment_service.go:200: Gateway rejected TXN-FFFF000011112222: provider declined
ERROR: 2026/10/17 09:05:00 payment_service.go:200: Gateway rejected TXN-AAAA000011112222: provider declined
`

func TestAnalyzeLogs(t *testing.T) {
	stats := newLogStats()
	require.NoError(t, analyzeInfoLogs(strings.NewReader(infoLog), stats))
	require.NoError(t, analyzeErrorLogs(strings.NewReader(errorLog), stats))

	assert.Equal(t, 1, stats.Registrations)
	assert.Equal(t, 1, stats.LoginSuccess)
	assert.Equal(t, 2, stats.LoginFailures)
	assert.Equal(t, 1, stats.PaymentsStarted)
	assert.Equal(t, 1, stats.ProviderUsage["MTN_MOMO"])
	assert.Equal(t, 1, stats.IdempotentReplay)
	assert.Equal(t, 1, stats.Transitions["PROCESSING -> SUCCESS"])
	assert.Equal(t, 1, stats.ReceiptsIssued)
	assert.Equal(t, 1, stats.DuplicateHooks)
	assert.Equal(t, 1, stats.RejectedWebhooks["wave"])
	assert.Equal(t, 2, stats.GatewayFailures)
	assert.Equal(t, 5, stats.TotalErrors)
	assert.Equal(t, 2, stats.ErrorPatterns["Gateway rejected #"])
}

func TestErrorPattern(t *testing.T) {
	assert.Equal(t, "Invalid password for user ID", errorPattern("ERROR: 2026/10/17 09:00:03 auth_service.go:138: Invalid password for user ID: 1"))
	assert.Equal(t, "", errorPattern("not a log line"))
}

func TestPrintReport(t *testing.T) {
	stats := newLogStats()
	require.NoError(t, analyzeInfoLogs(strings.NewReader(infoLog), stats))

	var out bytes.Buffer
	printReport(&out, stats)

	assert.Contains(t, out.String(), "Payments Initiated: 1")
	assert.Contains(t, out.String(), "MTN_MOMO: 1 payments")
	assert.NotContains(t, out.String(), "Rejected signatures")
}
