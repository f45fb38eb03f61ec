package gltf

import (
	"errors"
	"fmt"
)

// ErrParse is wrapped by every error that rejects a document.
var ErrParse = errors.New("gltf parse error")

// Parse failures.
var (
	ErrInvalidMagic       = fmt.Errorf("%w: invalid GLB magic", ErrParse)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrParse)
	ErrTruncated          = fmt.Errorf("%w: truncated container", ErrParse)
	ErrMissingChunk       = fmt.Errorf("%w: missing chunk", ErrParse)
	ErrInvalidJSON        = fmt.Errorf("%w: invalid JSON", ErrParse)
	ErrInvalidReference   = fmt.Errorf("%w: index out of range", ErrParse)
	ErrInvalidHierarchy   = fmt.Errorf("%w: invalid node hierarchy", ErrParse)
	ErrUnsupportedFeature = fmt.Errorf("%w: required extension not supported", ErrParse)
)

// Lifecycle errors.
var (
	ErrLoaderDestroyed   = errors.New("asset loader destroyed")
	ErrForeignAsset      = errors.New("asset belongs to another loader")
	ErrSourceReleased    = errors.New("asset source data released")
	ErrInvalidAssetState = errors.New("invalid asset state")
)
