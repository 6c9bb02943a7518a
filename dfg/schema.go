// Package dfg parses the dataflow-graph description (spec.md §6 "DFG
// JSON (consumed)") and interprets the subset of it assigned to this
// process into a sequence of local control actions (spec.md §4.7).
package dfg

import jsoniter "github.com/json-iterator/go"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Graph is the root DFG document, byte-for-byte the same schema the
// controller side publishes (spec.md §6: "mirror... byte-for-byte
// identical schema").
type Graph struct {
	ApplicationName string        `json:"application_name"`
	GlobalCtlIP     string        `json:"global_ctl_ip"`
	GlobalCtlPort   int           `json:"global_ctl_port"`
	MSUTypes        []MSUTypeDesc `json:"MSU_types"`
	MSUs            []MSUDesc     `json:"MSUs"`
	Runtimes        []RuntimeDesc `json:"runtimes"`
}

// MSUTypeDesc names a registered MSU type as the DFG references it.
type MSUTypeDesc struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// RuntimeDesc describes one runtime host in the DFG, including the
// routes it owns.
type RuntimeDesc struct {
	ID               uint32      `json:"id"`
	IP               string      `json:"ip"`
	Port             uint16      `json:"port"`
	NCores           int         `json:"n_cores"`
	NPinnedThreads   int         `json:"n_pinned_threads"`
	NUnpinnedThreads int         `json:"n_unpinned_threads"`
	Routes           []RouteDesc `json:"routes"`
}

// RouteDesc is one route belonging to a runtime: an id, the MSU type it
// delivers to, and its initial endpoint set.
type RouteDesc struct {
	ID        uint32         `json:"id"`
	Type      uint32         `json:"type"`
	Endpoints []EndpointDesc `json:"endpoints"`
}

// EndpointDesc is one entry of a route's ordered endpoint list.
type EndpointDesc struct {
	Key int32  `json:"key"`
	MSU uint32 `json:"msu"`
}

// VertexKind enumerates the DFG's vertex_type strings.
type VertexKind string

const (
	VertexEntry     VertexKind = "entry"
	VertexExit      VertexKind = "exit"
	VertexEntryExit VertexKind = "entry/exit"
	VertexNop       VertexKind = "nop"
)

// BlockingMode enumerates the DFG's blocking_mode strings.
type BlockingMode string

const (
	Blocking    BlockingMode = "blocking"
	NonBlocking BlockingMode = "non-blocking"
)

// SchedulingDesc places an MSU on a specific runtime and thread, and
// lists the routes it emits on.
type SchedulingDesc struct {
	Runtime  uint32   `json:"runtime"`
	ThreadID uint32   `json:"thread_id"`
	Routes   []uint32 `json:"routes"`
}

// MSUDesc is one vertex of the DFG.
type MSUDesc struct {
	ID           uint32         `json:"id"`
	Type         uint32         `json:"type"`
	VertexType   VertexKind     `json:"vertex_type"`
	InitData     string         `json:"init_data"`
	BlockingMode BlockingMode   `json:"blocking_mode"`
	Scheduling   SchedulingDesc `json:"scheduling"`
}

// Parse decodes a DFG document. It never interprets it — Interpreter
// does that — so a parse error is purely a JSON-shape problem, distinct
// from an interpretation-time placement error.
func Parse(data []byte) (*Graph, error) {
	var g Graph
	if err := jsonAPI.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
