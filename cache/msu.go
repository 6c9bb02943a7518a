package cache

import (
	"mime"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/sw1001/DeDOS/cmn"
	"github.com/sw1001/DeDOS/msu"
	"github.com/sw1001/DeDOS/xmsg"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is the payload both a cache request and a cache response are
// carried in, matching the original's habit of reusing one struct for
// both directions and telling them apart by whether Body is set (original:
// resp->body[0] == '\0' && resp->body_len == 0 means "this is a request,
// not a filled response").
type Message struct {
	URL    string `json:"url"`
	Status int    `json:"status,omitempty"`
	Type   string `json:"content_type,omitempty"`
	Body   []byte `json:"body,omitempty"`
}

const (
	statusOK       = 200
	statusNotFound = 404
)

// Kind is the LRU file cache MSU type (spec.md §4.8). WriteType and
// FileIOType name the downstream MSU types a cache hit/miss gets forwarded
// to; they're resolved to routes the same way any other CallType target
// is, via the instance's attached routes.
type Kind struct {
	msu.BaseKind

	WriteType  uint32
	FileIOType uint32
}

// state retrieves this instance's *State, assuming Init has already run.
func state(inst *msu.Instance) *State {
	return inst.State.(*State)
}

// Init builds the cache's State from init_data (a JSON-encoded
// cmn.CacheConfig) and, if WWWDir names an existing directory, warm-starts
// the cache from files already on disk.
func (k *Kind) Init(inst *msu.Instance, initData []byte) error {
	cfg := cmn.GCO().Cache
	if len(initData) > 0 {
		if err := json.Unmarshal(initData, &cfg); err != nil {
			return err
		}
	}
	s := NewState(cfg.MaxFiles, cfg.MaxKBSize, cfg.MaxOccupancyRate, cfg.WWWDir)
	inst.State = s
	if cfg.WWWDir != "" {
		if err := WarmStart(s, cfg.WWWDir); err != nil {
			// a warm-start failure (e.g. the directory doesn't exist yet)
			// is not fatal: the cache just starts cold.
			return nil
		}
	}
	return nil
}

// Destroy releases the instance's cached entries (the map and list become
// unreachable with inst.State itself, nothing further to release).
func (k *Kind) Destroy(inst *msu.Instance) error {
	return nil
}

// Receive implements the lookup/store branch of spec.md §4.8: a request
// (empty body) is looked up and forwarded either to the write MSU (hit) or
// the file-IO MSU (miss); a response (non-empty body, arriving from the
// file-IO MSU after a miss) is cached and then forwarded to the write MSU.
func (k *Kind) Receive(inst *msu.Instance, env *xmsg.Envelope) error {
	var m Message
	if err := json.Unmarshal(env.Payload, &m); err != nil {
		return err
	}
	s := state(inst)
	path := filepath.Join(s.WWWDir, m.URL)

	if len(m.Body) == 0 {
		if contents, ok := s.Lookup(path); ok {
			return k.forward(inst, m.URL, statusOK, contents)
		}
		return inst.CallType(k.FileIOType, env.Key, env.Payload)
	}

	status := m.Status
	if status == 0 {
		status = statusOK
	}
	if status == statusOK {
		if _, err := s.Store(path, m.Body); err != nil {
			return err
		}
	}
	return k.forward(inst, m.URL, status, m.Body)
}

func (k *Kind) forward(inst *msu.Instance, url string, status int, contents []byte) error {
	resp := Message{
		URL:    url,
		Status: status,
		Type:   mimeType(url),
		Body:   contents,
	}
	payload, err := json.Marshal(&resp)
	if err != nil {
		return err
	}
	return inst.CallType(k.WriteType, 0, payload)
}

func mimeType(url string) string {
	ext := filepath.Ext(url)
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
