package wiring

import "go.trai.ch/zerr"

var (
	// zerrNotInstaller is returned if the configured container harness
	// does not also implement [layer.Installer]. The reference netns
	// harness always does; this guards against a future harness adapter
	// that doesn't.
	zerrNotInstaller = zerr.New("container harness does not implement layer.Installer")

	// ErrMalformedOverride is returned when a line of `.chariot-overrides`
	// is not a `<source-name>: <local-path>` pair.
	ErrMalformedOverride = zerr.New("malformed .chariot-overrides line")
)
