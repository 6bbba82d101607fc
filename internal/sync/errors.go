package sync

import "errors"

var (
	errAmbiguousAbsoluteMapping   = errors.New("absolute file_mappings source against an SSH endpoint is ambiguous; use a root-relative path")
	errAbsoluteMappingOutsideRoot = errors.New("absolute file_mappings source does not fall under the source endpoint root")
)
