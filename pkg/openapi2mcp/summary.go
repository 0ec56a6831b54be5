package openapi2mcp

import (
	"fmt"
	"io"
	"sort"
)

// PrintToolSummary writes a human-readable summary of the tools that ops
// will generate: the total, then the operation count per tag.
//
//	Total tools: 12
//	Tags:
//	  pets: 8
//	  store: 3
//	  user: 1
func PrintToolSummary(w io.Writer, ops []OpenAPIOperation) {
	tagCount := map[string]int{}
	for _, op := range ops {
		for _, tag := range op.Tags {
			tagCount[tag]++
		}
	}

	fmt.Fprintf(w, "Total tools: %d\n", len(ops))
	if len(tagCount) == 0 {
		return
	}

	tags := make([]string, 0, len(tagCount))
	for tag := range tagCount {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	fmt.Fprintln(w, "Tags:")
	for _, tag := range tags {
		fmt.Fprintf(w, "  %s: %d\n", tag, tagCount[tag])
	}
}

// PrintToolList writes one line per tool: name, method and path.
func PrintToolList(w io.Writer, ops []OpenAPIOperation) {
	for _, op := range ops {
		fmt.Fprintf(w, "%-40s %-7s %s\n", op.OperationID, op.Method, op.Path)
	}
}

// FilterByTags returns the operations carrying at least one of tags. An
// empty tag list keeps every operation.
func FilterByTags(ops []OpenAPIOperation, tags []string) []OpenAPIOperation {
	if len(tags) == 0 {
		return ops
	}
	var out []OpenAPIOperation
	for _, op := range ops {
		if hasTag(op.Tags, tags) {
			out = append(out, op)
		}
	}
	return out
}
