package adapters

// IndexStats is one Elasticsearch index stats entry.
type IndexStats struct {
	Index     string `json:"index"`
	Health    string `json:"health"`
	Primaries struct {
		Docs struct {
			Count int64 `json:"count"`
		} `json:"docs"`
		Store struct {
			SizeInBytes int64 `json:"size_in_bytes"`
		} `json:"store"`
		Indexing struct {
			IndexFailed int64 `json:"index_failed"`
		} `json:"indexing"`
	} `json:"primaries"`
}

// NodeStats is one Elasticsearch node stats entry.
type NodeStats struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	OS      struct {
		FS struct {
			Total     int64 `json:"total"`
			Available int64 `json:"available"`
		} `json:"fs"`
	} `json:"os"`
}

// IndexMetrics reports document count, primary store size and index health
// per index.
func IndexMetrics(indices []IndexStats) []Component {
	components := make([]Component, 0, len(indices))
	for _, idx := range indices {
		healthy := int64(0)
		if idx.Health == "green" {
			healthy = 1
		}
		components = append(components, Component{
			Name: idx.Index,
			Properties: []Property{
				valueProp("documents", idx.Primaries.Docs.Count, ""),
				valueProp("size", idx.Primaries.Store.SizeInBytes, UnitBytes),
				valueProp("healthy_indices", healthy, ""),
				valueProp("unhealthy_indices", idx.Primaries.Indexing.IndexFailed, ""),
			},
		})
	}
	return components
}

// ElasticNodeMetrics reports version and disk usage per node.
func ElasticNodeMetrics(nodes []NodeStats) []Component {
	components := make([]Component, 0, len(nodes))
	for _, n := range nodes {
		fs := n.OS.FS
		components = append(components, Component{
			Name: n.Name,
			Properties: []Property{
				textProp("version", n.Version),
				valueProp("disk_space_used", fs.Total-fs.Available, UnitBytes),
				valueProp("disk_space_free", fs.Available, UnitBytes),
			},
		})
	}
	return components
}
