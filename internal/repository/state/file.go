package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-engine/internal/codec"
	"github.com/oshokin/alarm-engine/internal/config"
	"github.com/oshokin/alarm-engine/internal/domain/alarm"
)

// Entry is the persisted state of one leaf.
type Entry struct {
	// State is the alarm state, including acknowledgement.
	State alarm.State
	// Current is the latest state received from the source.
	Current alarm.State
}

// Repository defines persistence operations for alarm states.
type Repository interface {
	Load(ctx context.Context) (map[string]Entry, error)
	Save(ctx context.Context, entries map[string]Entry) error
}

// FileRepository persists alarm states to a JSON file on disk.
// JSON is produced and consumed via protojson over google.protobuf.Struct
// so the file uses the same field names as the API.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the states from disk.
func (r *FileRepository) Load(_ context.Context) (map[string]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var document structpb.Struct
	if err = protojson.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	entries := make(map[string]Entry, len(document.GetFields()))

	for path, value := range document.GetFields() {
		fields := value.GetStructValue()
		if fields == nil {
			return nil, fmt.Errorf("decode state of %s: not an object", path)
		}

		entry, err := fromStruct(fields)
		if err != nil {
			return nil, fmt.Errorf("decode state of %s: %w", path, err)
		}

		entries[path] = entry
	}

	return entries, nil
}

// Save replaces the file with entries. The file is written next to the old
// one and renamed so a crash never leaves it half written.
func (r *FileRepository) Save(_ context.Context, entries map[string]Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	document := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(entries))}
	for path, entry := range entries {
		document.Fields[path] = structpb.NewStructValue(toStruct(entry))
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
	}

	data, err := marshalOptions.Marshal(document)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

func fromStruct(fields *structpb.Struct) (Entry, error) {
	state, err := codec.State(fields)
	if err != nil {
		return Entry{}, err
	}

	current, ok, err := codec.Current(fields)
	if err != nil {
		return Entry{}, err
	}

	if !ok {
		current = state
	}

	return Entry{State: state, Current: current}, nil
}

func toStruct(entry Entry) *structpb.Struct {
	fields := make(map[string]*structpb.Value, 9)
	codec.PutState(fields, entry.State)
	codec.PutCurrent(fields, entry.Current)

	return &structpb.Struct{Fields: fields}
}
