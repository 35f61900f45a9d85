package rmw

import (
	"encoding/json"
	"strings"

	"github.com/golang/glog"
)

// NodeMeta describes a node to observers of the fabric.
type NodeMeta struct {
	Description string            `json:"description,omitempty"`
	MachineID   string            `json:"machine_id,omitempty"`
	Session     string            `json:"session,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Node is the identity of the device on the fabric.
type Node struct {
	Meta NodeMeta

	support   *Support
	name      string
	namespace string
}

// NewNode validates the name, reserves the node and announces it.
func (s *Support) NewNode(name, namespace string, meta NodeMeta) (*Node, error) {
	if err := ValidateNodeName(name); err != nil {
		return nil, &Error{Op: OpNodeInit, Err: err}
	}
	if err := ValidateNamespace(namespace); err != nil {
		return nil, &Error{Op: OpNodeInit, Err: err}
	}
	if err := s.Allocator.Reserve(KindNode); err != nil {
		return nil, &Error{Op: OpNodeInit, Err: err}
	}
	if meta.Session == "" {
		meta.Session = s.SessionKey
	}
	n := &Node{
		Meta:      meta,
		support:   s,
		name:      name,
		namespace: strings.Trim(namespace, "/"),
	}
	data, err := json.Marshal(&n.Meta)
	if err != nil {
		panic(err)
	}
	if err := s.Transport.Announce(TransportTopic(n.FullyQualifiedName()), data); err != nil {
		s.Allocator.Release(KindNode)
		return nil, &Error{Op: OpNodeInit, Err: err}
	}
	glog.Infof("node %s created", n.FullyQualifiedName())
	return n, nil
}

// Name gets the node name.
func (n *Node) Name() string {
	return n.name
}

// Namespace gets the node namespace without slashes.
func (n *Node) Namespace() string {
	return n.namespace
}

// FullyQualifiedName returns "/ns/name".
func (n *Node) FullyQualifiedName() string {
	if n.namespace == "" {
		return "/" + n.name
	}
	return "/" + n.namespace + "/" + n.name
}

// Support gets the owning support.
func (n *Node) Support() *Support {
	return n.support
}
