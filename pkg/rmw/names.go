package rmw

import (
	"fmt"
	"strings"
)

func validToken(tok string) bool {
	if tok == "" {
		return false
	}
	for i, r := range tok {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ValidateNodeName checks a node name.
func ValidateNodeName(name string) error {
	if !validToken(name) {
		return fmt.Errorf("%w: node %q", ErrInvalidName, name)
	}
	return nil
}

// ValidateNamespace checks a namespace, "" or "/" being the root.
func ValidateNamespace(ns string) error {
	ns = strings.Trim(ns, "/")
	if ns == "" {
		return nil
	}
	for _, tok := range strings.Split(ns, "/") {
		if !validToken(tok) {
			return fmt.Errorf("%w: namespace %q", ErrInvalidName, ns)
		}
	}
	return nil
}

// ResolveTopic expands topic against namespace into the fully qualified
// form "/ns/topic". Absolute topics are kept.
func ResolveTopic(namespace, topic string) (string, error) {
	name := topic
	if !strings.HasPrefix(name, "/") {
		if ns := strings.Trim(namespace, "/"); ns != "" {
			name = "/" + ns + "/" + name
		} else {
			name = "/" + name
		}
	}
	body := strings.TrimPrefix(name, "/")
	if body == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	for _, tok := range strings.Split(body, "/") {
		if !validToken(tok) {
			return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
		}
	}
	return name, nil
}

// TransportTopic maps a fully qualified topic to the transport topic.
func TransportTopic(fqtn string) string {
	return strings.TrimPrefix(fqtn, "/")
}
