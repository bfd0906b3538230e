package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hpungsan/timeless/internal/capsule"
)

// CurrentSchemaVersion is the envelope version written by this build.
// Version 1 is the legacy bare JSON array with no envelope.
const CurrentSchemaVersion = 2

// envelope is the persisted form of the collection.
type envelope struct {
	SchemaVersion int              `json:"schemaVersion"`
	Capsules      []capsule.Record `json:"capsules"`
}

// LoadResult summarizes what Load found.
type LoadResult struct {
	// Count is the number of capsules loaded
	Count int

	// Version is the schema version found in storage
	Version int

	// Migrated is true when the stored data was upgraded and re-persisted
	Migrated bool

	// Skipped counts records dropped because they could not be decoded
	Skipped int

	// Corrupt is true when the stored value was unreadable
	Corrupt bool
}

func encodeCollection(caps []*capsule.Capsule) (string, error) {
	env := envelope{
		SchemaVersion: CurrentSchemaVersion,
		Capsules:      make([]capsule.Record, len(caps)),
	}
	for i, c := range caps {
		env.Capsules[i] = c.ToRecord()
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode capsules: %w", err)
	}
	return string(data), nil
}

// decodeCollection reads any known schema version. Individual records that
// fail to decode are dropped with a warning; an unreadable document or an
// unknown version is an error.
func decodeCollection(raw string, logger *slog.Logger) ([]*capsule.Capsule, LoadResult, error) {
	var records []capsule.Record
	var res LoadResult

	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
			return nil, res, fmt.Errorf("decode v1 capsules: %w", err)
		}
		res.Version = 1
	case strings.HasPrefix(trimmed, "{"):
		var env envelope
		if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
			return nil, res, fmt.Errorf("decode capsules: %w", err)
		}
		if env.SchemaVersion < 2 || env.SchemaVersion > CurrentSchemaVersion {
			return nil, res, fmt.Errorf("unsupported schema version %d", env.SchemaVersion)
		}
		records = env.Capsules
		res.Version = env.SchemaVersion
	default:
		return nil, res, fmt.Errorf("stored capsules are neither an array nor an object")
	}

	caps := make([]*capsule.Capsule, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i := range records {
		c, err := records[i].ToCapsule()
		if err != nil {
			logger.Warn("dropping unreadable capsule record", "index", i, "error", err)
			res.Skipped++
			continue
		}
		if seen[c.ID] {
			logger.Warn("dropping duplicate capsule record", "id", c.ID)
			res.Skipped++
			continue
		}
		seen[c.ID] = true
		caps = append(caps, c)
	}

	res.Count = len(caps)
	res.Migrated = res.Version < CurrentSchemaVersion
	return caps, res, nil
}
