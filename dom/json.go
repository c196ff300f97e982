package dom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/npillmayer/sctree/css"
	"github.com/npillmayer/sctree/dom/style"
)

// ErrDocument is returned for input which is not a document node.
var ErrDocument = errors.New("malformed document")

// Decode reads a document from JSON.
func Decode(r io.Reader) (*Node, error) {
	n := &Node{}
	if err := json.NewDecoder(r).Decode(n); err != nil {
		return nil, err
	}
	return n, nil
}

// UnmarshalJSON decodes a node, keeping relations in input order.
func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return err
		}
		switch key {
		case "class":
			if n.Class, err = stringValue(dec, key); err != nil {
				return err
			}
		case "id":
			if n.ID, err = stringValue(dec, key); err != nil {
				return err
			}
		case "children":
			if err = n.decodeRelations(dec); err != nil {
				return err
			}
		default:
			var v interface{}
			if err = dec.Decode(&v); err != nil {
				return err
			}
			if x, ok := numeric(key, v); ok {
				n.Set(key, x)
			}
		}
	}
	return expectDelim(dec, '}')
}

func (n *Node) decodeRelations(dec *json.Decoder) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		label, err := objectKey(dec)
		if err != nil {
			return err
		}
		var raw json.RawMessage
		if err = dec.Decode(&raw); err != nil {
			return err
		}
		raw = bytes.TrimSpace(raw)
		switch {
		case len(raw) > 0 && raw[0] == '[':
			var children []*Node
			if err = json.Unmarshal(raw, &children); err != nil {
				return fmt.Errorf("relation %q: %w", label, err)
			}
			n.Relations = append(n.Relations, Relation{Label: label, Children: children, Multi: true})
		case len(raw) > 0 && raw[0] == '{':
			child := &Node{}
			if err = json.Unmarshal(raw, child); err != nil {
				return fmt.Errorf("relation %q: %w", label, err)
			}
			n.Child(label, child)
		default:
			return fmt.Errorf("%w: relation %q is neither node nor list", ErrDocument, label)
		}
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, d json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != d {
		return fmt.Errorf("%w: expected '%v', have %v", ErrDocument, d, tok)
	}
	return nil
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, have %v", ErrDocument, tok)
	}
	return key, nil
}

func stringValue(dec *json.Decoder, key string) (string, error) {
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("%w: %s must be a string", ErrDocument, key)
}

// numeric gives the numeric reading of an attribute value.
func numeric(key string, v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		val, err := css.ParseValue(style.Property(x))
		if err != nil {
			tracer().Infof("attribute %s dropped: %v", key, err)
			return 0, false
		}
		return val.Float(), true
	case nil:
		return 0, false
	}
	tracer().Infof("attribute %s dropped: structured values are not supported", key)
	return 0, false
}
