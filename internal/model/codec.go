package model

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// EncodeHistory renders a history as space-separated edit records,
// newest edit first. The receiving side replays in reverse.
func EncodeHistory(h History) string {
	parts := make([]string, 0, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		parts = append(parts, h[i].String())
	}

	return strings.Join(parts, " ")
}

// DecodeHistory parses the wire form back into an ordered history.
// Records arrive newest-first, so the parsed list is reversed before
// returning. Records with an unrecognized leading character are logged and
// dropped; the crossover marker 'x' is a known placeholder and is dropped
// with a warning.
func DecodeHistory(s string) (History, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var reversed History

	for _, tok := range strings.Fields(s) {
		edit, ok, err := decodeEdit(tok)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		reversed = append(reversed, edit)
	}

	h := make(History, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		h = append(h, reversed[i])
	}

	return h, nil
}

// EncodeVariants joins per-variant histories with '.'.
func EncodeVariants(hs []History) string {
	parts := make([]string, 0, len(hs))
	for _, h := range hs {
		parts = append(parts, EncodeHistory(h))
	}

	return strings.Join(parts, ".")
}

// DecodeVariants splits a multi-variant message and decodes each history.
func DecodeVariants(s string) ([]History, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	segments := strings.Split(s, ".")
	out := make([]History, 0, len(segments))

	for _, seg := range segments {
		h, err := DecodeHistory(seg)
		if err != nil {
			return nil, err
		}

		out = append(out, h)
	}

	return out, nil
}

func decodeEdit(tok string) (Edit, bool, error) {
	if len(tok) < 3 {
		return Edit{}, false, fmt.Errorf("malformed edit record %q", tok)
	}

	kind := tok[0]
	if kind == 'x' {
		slog.Warn("dropping crossover marker from incoming history", "record", tok)
		return Edit{}, false, nil
	}

	args, err := parseIDList(tok[1:])
	if err != nil {
		return Edit{}, false, fmt.Errorf("edit record %q: %w", tok, err)
	}

	switch kind {
	case 'd':
		if len(args) != 1 {
			return Edit{}, false, fmt.Errorf("edit record %q: want 1 id, got %d", tok, len(args))
		}

		return Delete(AtomID(args[0])), true, nil
	case 'a', 's', 'r':
		if len(args) != 2 {
			return Edit{}, false, fmt.Errorf("edit record %q: want 2 ids, got %d", tok, len(args))
		}

		dest, src := AtomID(args[0]), AtomID(args[1])

		switch kind {
		case 'a':
			return Append(dest, src), true, nil
		case 's':
			return Swap(dest, src), true, nil
		default:
			return Replace(dest, src), true, nil
		}
	case 'e':
		switch len(args) {
		case 2:
			return ReplaceSubatomConst(AtomID(args[0]), args[1]), true, nil
		case 4:
			return ReplaceSubatom(AtomID(args[0]), args[1], AtomID(args[2]), args[3]), true, nil
		default:
			return Edit{}, false, fmt.Errorf("edit record %q: want 2 or 4 ids, got %d", tok, len(args))
		}
	}

	slog.Warn("dropping unrecognized edit record", "record", tok)

	return Edit{}, false, nil
}

func parseIDList(s string) ([]int, error) {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("missing parentheses")
	}

	body := s[1 : len(s)-1]
	if body == "" {
		return nil, fmt.Errorf("empty id list")
	}

	fields := strings.Split(body, ",")
	ids := make([]int, 0, len(fields))

	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("bad id %q", f)
		}

		ids = append(ids, n)
	}

	return ids, nil
}
