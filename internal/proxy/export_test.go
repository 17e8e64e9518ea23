package proxy

// FormatDuration exposes formatDuration for tests.
var FormatDuration = formatDuration
