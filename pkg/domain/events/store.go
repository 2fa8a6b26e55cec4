package events

// EventStore persists the event journal.
type EventStore interface {
	// Append adds a record to the journal, chaining it to the previous one.
	Append(record *BaseEvent) error

	// LoadAll returns all records in the order they were appended.
	LoadAll() ([]*BaseEvent, error)
}

// VerifyChain checks that every record's hash matches its content and links
// to its predecessor. It returns the index of the first broken record, or -1.
func VerifyChain(records []*BaseEvent) int {
	prev := ""
	for i, rec := range records {
		if rec.PrevHash != prev || rec.CalculateHash() != rec.Hash {
			return i
		}
		prev = rec.Hash
	}
	return -1
}
