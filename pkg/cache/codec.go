package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/wikimedia/mediawiki-extensions-AbuseFilter-sub001/pkg/types"
)

// blobVersion is bumped whenever the serialized AST layout changes, so
// stale blobs decode as misses instead of wrong trees.
const blobVersion = 1

type blob struct {
	Version int            `json:"v"`
	Source  string         `json:"src"`
	AST     *types.ASTNode `json:"ast"`
}

// EncodeExpression serializes a parsed expression as lz4-compressed JSON.
func EncodeExpression(expr *types.Expression) ([]byte, error) {
	raw, err := json.Marshal(blob{Version: blobVersion, Source: expr.Source(), AST: expr.AST()})
	if err != nil {
		return nil, fmt.Errorf("encode ast: %w", err)
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress ast: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress ast: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeExpression restores an expression written by EncodeExpression.
func DecodeExpression(data []byte) (*types.Expression, error) {
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decompress ast: %w", err)
	}

	var b blob
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode ast: %w", err)
	}
	if b.Version != blobVersion {
		return nil, fmt.Errorf("decode ast: blob version %d, want %d", b.Version, blobVersion)
	}
	return types.NewExpression(b.AST, b.Source), nil
}
