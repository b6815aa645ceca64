package graph

import (
	"encoding/json"
	"os"
)

// coordinateDoc is the wire shape of the persisted network JSON document:
// {"<LABEL>": {"x": number, "y": number}, ...} covering every non-undefined
// label.
type coordinateDoc map[Label]Position

// FileProvider persists operator-edited coordinates to a JSON file on disk,
// falling back to the embedded competition defaults the first time it runs
// (mirroring the original's "if the dynamic network file doesn't exist, use
// the hardcoded competition graph" behavior).
type FileProvider struct {
	path string
}

// NewFileProvider returns a provider backed by the JSON document at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Provide reads the persisted coordinate document, if any, and returns a
// fresh network built from it; absent a file, it returns the embedded
// competition default.
func (p *FileProvider) Provide() *Network {
	positions, err := p.readPositions()
	if err != nil {
		return NewCompetitionNetwork(CompetitionPositions)
	}
	return NewCompetitionNetwork(positions)
}

func (p *FileProvider) readPositions() (map[Label]Position, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, err
	}
	var doc coordinateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Persist writes positions to the provider's backing file, replacing its
// contents. Used by the control plane's PUT /network handler to record
// operator edits across restarts.
func (p *FileProvider) Persist(positions map[Label]Position) error {
	data, err := json.Marshal(coordinateDoc(positions))
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// Positions returns the network's current per-label coordinates, suitable
// for Persist or for serving GET /network.
func Positions(n *Network) map[Label]Position {
	positions := make(map[Label]Position, len(n.nodesByLabel))
	for label, node := range n.nodesByLabel {
		positions[label] = node.Position
	}
	return positions
}
