package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix leaves room for changing
// the digest layout without colliding with archived values.
const (
	DomainTurn = "cae/turn/v1"
	DomainNode = "cae/node/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TurnNode is the digest input for one node of a finished turn.
type TurnNode struct {
	Ord    int
	Parent int
	Depth  int
	Kind   string
	Fields IRObject
}

func (n TurnNode) object() IRObject {
	fields := n.Fields
	if fields == nil {
		fields = IRObject{}
	}
	return IRObject{
		"ord":    IRInt(n.Ord),
		"parent": IRInt(n.Parent),
		"depth":  IRInt(n.Depth),
		"kind":   IRString(n.Kind),
		"fields": fields,
	}
}

// NodeDigest identifies a single node by content and position.
func NodeDigest(n TurnNode) (string, error) {
	canonical, err := MarshalCanonical(n.object())
	if err != nil {
		return "", fmt.Errorf("NodeDigest: %w", err)
	}
	return hashWithDomain(DomainNode, canonical), nil
}

// TurnDigest identifies a finished turn. Nodes must be in scan order. Run
// ids are excluded so two runs of the same scenario produce equal digests.
func TurnDigest(turn int64, nodes []TurnNode) (string, error) {
	arr := make(IRArray, len(nodes))
	for i, n := range nodes {
		arr[i] = n.object()
	}
	canonical, err := MarshalCanonical(IRObject{
		"turn":  IRInt(turn),
		"nodes": arr,
	})
	if err != nil {
		return "", fmt.Errorf("TurnDigest: %w", err)
	}
	return hashWithDomain(DomainTurn, canonical), nil
}

// MustTurnDigest is like TurnDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTurnDigest(turn int64, nodes []TurnNode) string {
	d, err := TurnDigest(turn, nodes)
	if err != nil {
		panic(err)
	}
	return d
}
