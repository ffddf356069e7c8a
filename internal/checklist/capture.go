package checklist

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownCell         = errors.New("unknown checklist cell")
	ErrInfoColumn          = errors.New("info columns are read-only")
	ErrCommentsDisabled    = errors.New("comments are disabled for this column")
	ErrAttachmentsDisabled = errors.New("attachments are disabled for this column")
	ErrInvalidValue        = errors.New("invalid value for input")
	ErrAttachmentIndex     = errors.New("attachment index out of range")
)

// Attachment is a file appended to a cell. URL is a transient reference
// handed out by a BlobStore; it stays valid until released.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// CellData is the captured state of one (row, column) cell.
type CellData struct {
	Values      map[string]any `json:"values"`
	Comment     string         `json:"comment,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// Responses holds captured cells keyed by row id, then column id.
type Responses map[string]map[string]CellData

// Cell returns the data for one cell; the zero CellData when absent.
func (r Responses) Cell(rowID, colID string) CellData {
	return r[rowID][colID]
}

// Clone deep-copies r.
func (r Responses) Clone() Responses {
	out := make(Responses, len(r))
	for rowID, cols := range r {
		m := make(map[string]CellData, len(cols))
		for colID, cell := range cols {
			m[colID] = cell.clone()
		}
		out[rowID] = m
	}
	return out
}

func (c CellData) clone() CellData {
	out := CellData{Comment: c.Comment}
	if c.Values != nil {
		out.Values = make(map[string]any, len(c.Values))
		for k, v := range c.Values {
			out.Values[k] = v
		}
	}
	if c.Attachments != nil {
		out.Attachments = append([]Attachment(nil), c.Attachments...)
	}
	return out
}

// BlobStore hands out transient URLs for attachment content. Every URL
// returned by Put must eventually be passed to Release.
type BlobStore interface {
	Put(name, contentType string, data []byte) (url string, err error)
	Release(url string)
}

// Capture records fill-in values for one grid. It owns the blob URLs it
// creates and releases them on removal or Release.
type Capture struct {
	mu     sync.Mutex
	cfg    Config
	values Responses
	blobs  BlobStore
	owned  map[string]struct{}
}

// NewCapture starts capturing against cfg, seeded with a copy of initial.
func NewCapture(cfg Config, initial Responses, blobs BlobStore) *Capture {
	if initial == nil {
		initial = Responses{}
	}
	return &Capture{
		cfg:    cfg.Clone(),
		values: initial.Clone(),
		blobs:  blobs,
		owned:  make(map[string]struct{}),
	}
}

// SetConfig swaps the grid definition. Values of rows or columns that no
// longer exist are kept but never rendered.
func (c *Capture) SetConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg.Clone()
}

// Responses returns a deep copy of everything captured so far.
func (c *Capture) Responses() Responses {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Clone()
}

// SetValue stores v for one input of a cell after checking it against the
// input type.
func (c *Capture) SetValue(rowID, colID, inputID string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.writableColumn(rowID, colID)
	if err != nil {
		return err
	}
	in, ok := col.Input(inputID)
	if !ok {
		return fmt.Errorf("%w: input %s", ErrUnknownCell, inputID)
	}
	v, err = coerce(in, v)
	if err != nil {
		return err
	}
	c.update(rowID, colID, func(cell *CellData) {
		if cell.Values == nil {
			cell.Values = make(map[string]any)
		}
		cell.Values[inputID] = v
	})
	return nil
}

// Toggle flips a checkbox input and returns the new state.
func (c *Capture) Toggle(rowID, colID, inputID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.writableColumn(rowID, colID)
	if err != nil {
		return false, err
	}
	in, ok := col.Input(inputID)
	if !ok || in.Type != InputCheckbox {
		return false, fmt.Errorf("%w: %s is not a checkbox", ErrInvalidValue, inputID)
	}
	cur, _ := c.values.Cell(rowID, colID).Values[inputID].(bool)
	next := !cur
	c.update(rowID, colID, func(cell *CellData) {
		if cell.Values == nil {
			cell.Values = make(map[string]any)
		}
		cell.Values[inputID] = next
	})
	return next, nil
}

// SetComment sets the comment text of a cell; the column must allow comments.
func (c *Capture) SetComment(rowID, colID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.writableColumn(rowID, colID)
	if err != nil {
		return err
	}
	if !col.Capabilities.AllowComments {
		return ErrCommentsDisabled
	}
	c.update(rowID, colID, func(cell *CellData) { cell.Comment = text })
	return nil
}

// AddAttachment stores data in the blob store and appends it to the cell.
func (c *Capture) AddAttachment(rowID, colID, name, contentType string, data []byte) (Attachment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, err := c.writableColumn(rowID, colID)
	if err != nil {
		return Attachment{}, err
	}
	if !col.Capabilities.AllowAttachments {
		return Attachment{}, ErrAttachmentsDisabled
	}
	url, err := c.blobs.Put(name, contentType, data)
	if err != nil {
		return Attachment{}, err
	}
	c.owned[url] = struct{}{}
	att := Attachment{Name: name, URL: url, Size: int64(len(data)), ContentType: contentType}
	c.update(rowID, colID, func(cell *CellData) {
		cell.Attachments = append(append([]Attachment(nil), cell.Attachments...), att)
	})
	return att, nil
}

// RemoveAttachment drops the attachment at index and releases its blob.
func (c *Capture) RemoveAttachment(rowID, colID string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cell := c.values.Cell(rowID, colID)
	if index < 0 || index >= len(cell.Attachments) {
		return ErrAttachmentIndex
	}
	removed := cell.Attachments[index]
	c.update(rowID, colID, func(cell *CellData) {
		kept := make([]Attachment, 0, len(cell.Attachments)-1)
		for i, a := range cell.Attachments {
			if i != index {
				kept = append(kept, a)
			}
		}
		cell.Attachments = kept
	})
	c.release(removed.URL)
	return nil
}

// Merge applies the values and comments of a decoded submission. Every cell
// in r is treated as submitted in full: a nil value clears that input and,
// where the column allows comments, the comment is replaced even when empty.
// Nothing is stored unless the whole submission is valid. Attachments in r
// are ignored; they only enter through AddAttachment.
func (c *Capture) Merge(r Responses) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	type cellKey struct{ row, col string }
	staged := make(map[cellKey]CellData)
	for rowID, cols := range r {
		for colID, sub := range cols {
			col, err := c.writableColumn(rowID, colID)
			if err != nil {
				return err
			}
			next := CellData{Values: map[string]any{}}
			for inputID, v := range sub.Values {
				in, ok := col.Input(inputID)
				if !ok {
					return fmt.Errorf("%w: input %s", ErrUnknownCell, inputID)
				}
				if v == nil {
					next.Values[inputID] = nil
					continue
				}
				cv, err := coerce(in, v)
				if err != nil {
					return err
				}
				next.Values[inputID] = cv
			}
			switch {
			case col.Capabilities.AllowComments:
				next.Comment = sub.Comment
			case sub.Comment != "":
				return ErrCommentsDisabled
			}
			staged[cellKey{rowID, colID}] = next
		}
	}

	for k, next := range staged {
		allowComments := false
		if col, ok := c.cfg.Column(k.col); ok {
			allowComments = col.Capabilities.AllowComments
		}
		c.update(k.row, k.col, func(cell *CellData) {
			if cell.Values == nil {
				cell.Values = make(map[string]any)
			}
			for inputID, v := range next.Values {
				if v == nil {
					delete(cell.Values, inputID)
					continue
				}
				cell.Values[inputID] = v
			}
			if allowComments {
				cell.Comment = next.Comment
			}
		})
	}
	return nil
}

// Release frees every blob this capture still owns.
func (c *Capture) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url := range c.owned {
		c.release(url)
	}
}

func (c *Capture) release(url string) {
	if _, ok := c.owned[url]; !ok {
		return
	}
	delete(c.owned, url)
	c.blobs.Release(url)
}

func (c *Capture) writableColumn(rowID, colID string) (Column, error) {
	if _, ok := c.cfg.Row(rowID); !ok {
		return Column{}, fmt.Errorf("%w: row %s", ErrUnknownCell, rowID)
	}
	col, ok := c.cfg.Column(colID)
	if !ok {
		return Column{}, fmt.Errorf("%w: column %s", ErrUnknownCell, colID)
	}
	if col.Type == ColumnInfo {
		return Column{}, ErrInfoColumn
	}
	return col, nil
}

func (c *Capture) update(rowID, colID string, fn func(*CellData)) {
	cols := make(map[string]CellData, len(c.values[rowID])+1)
	for k, v := range c.values[rowID] {
		cols[k] = v
	}
	cell := cols[colID].clone()
	fn(&cell)
	cols[colID] = cell
	c.values[rowID] = cols
}

// coerce checks v against the input type and normalises numbers to float64.
func coerce(in Input, v any) (any, error) {
	bad := fmt.Errorf("%w: %s expects %s", ErrInvalidValue, in.ID, in.Type)
	switch in.Type {
	case InputCheckbox:
		b, ok := v.(bool)
		if !ok {
			return nil, bad
		}
		return b, nil
	case InputNumber:
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case float32:
			f = float64(n)
		case int:
			f = float64(n)
		case int64:
			f = float64(n)
		default:
			return nil, bad
		}
		if (in.Min != nil && f < *in.Min) || (in.Max != nil && f > *in.Max) {
			return nil, fmt.Errorf("%w: %s out of range", ErrInvalidValue, in.ID)
		}
		return f, nil
	case InputSelect:
		s, ok := v.(string)
		if !ok {
			return nil, bad
		}
		if s == "" {
			return s, nil
		}
		for _, o := range in.Options {
			if o == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %q is not an option of %s", ErrInvalidValue, s, in.ID)
	default:
		s, ok := v.(string)
		if !ok {
			return nil, bad
		}
		return s, nil
	}
}

// MemoryBlobStore keeps attachment content in memory under "blob:" URLs.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	name        string
	contentType string
	data        []byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]memoryBlob)}
}

func (s *MemoryBlobStore) Put(name, contentType string, data []byte) (string, error) {
	url := "blob:" + uuid.New().String()
	s.mu.Lock()
	s.blobs[url] = memoryBlob{name: name, contentType: contentType, data: append([]byte(nil), data...)}
	s.mu.Unlock()
	return url, nil
}

// Get returns the content behind url.
func (s *MemoryBlobStore) Get(url string) (data []byte, name, contentType string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[url]
	return b.data, b.name, b.contentType, ok
}

func (s *MemoryBlobStore) Release(url string) {
	s.mu.Lock()
	delete(s.blobs, url)
	s.mu.Unlock()
}

// Len reports how many blobs are live.
func (s *MemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
