package models

// NodeType is the type tag of a tree node.
type NodeType string

const (
	NodeFile   NodeType = "file"
	NodeFolder NodeType = "folder"
)

// TreeNode is one entry in a directory tree. The JSON field names match
// the repopatch server's /api/directory response.
type TreeNode struct {
	Type     NodeType             `json:"type"`
	Path     string               `json:"path"`
	Children map[string]*TreeNode `json:"children,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n *TreeNode) IsFolder() bool { return n.Type == NodeFolder }
