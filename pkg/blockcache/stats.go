package blockcache

// Stats is a snapshot of a Model's state.
type Stats struct {
	ID          string  `json:"id"`
	Generation  uint64  `json:"generation"`
	Status      string  `json:"status"`
	Policy      string  `json:"policy"`
	BlockSize   int     `json:"block_size"`
	RowCount    int     `json:"row_count"`
	ColumnCount int     `json:"column_count"`
	TotalBlocks int     `json:"total_blocks"`
	Resident    int     `json:"resident"`
	Pending     int     `json:"pending"`
	Ahead       int     `json:"ahead"`
	Behind      int     `json:"behind"`
	Progress    float64 `json:"progress"`

	VisibleStart int  `json:"visible_start"`
	VisibleEnd   int  `json:"visible_end"`
	HasVisible   bool `json:"has_visible"`
}

// Stats returns a snapshot of the model.
func (m *Model) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		ID:           m.id,
		Generation:   m.generation,
		Status:       m.status.String(),
		Policy:       m.policy.String(),
		BlockSize:    m.blockSize,
		RowCount:     m.rowCount,
		ColumnCount:  m.colCount,
		TotalBlocks:  m.totalBlocksLocked(),
		Resident:     len(m.blocks),
		Pending:      len(m.pending),
		Ahead:        m.ahead,
		Behind:       m.behind,
		Progress:     m.progressLocked(),
		VisibleStart: m.visStart,
		VisibleEnd:   m.visEnd,
		HasVisible:   m.hasVisible,
	}
}
