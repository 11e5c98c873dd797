package appfs

import "embed"

// FS holds the static files embedded in the binaries.
//go:embed assets/* migrations/*.sql seed/*.yaml templates/email/*
var FS embed.FS
