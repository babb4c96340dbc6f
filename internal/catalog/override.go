package catalog

import (
	"bytes"
	"fmt"
	"strings"
)

// Override renders the plane's override description: one `key = value` line
// per plane entry in insertion order, then per artifact in insertion order a
// blank line, a `?uri` header, and that artifact's lines. Custom keys never
// appear. The derived members and provenance.inputs keys are computed on a
// copy, so the catalog itself stays untouched and the output is byte-stable
// for a given catalog state.
func Override(obs *Observation, plane *Plane) []byte {
	dict := plane.PlaneDict.Clone()

	// A plane that never declared an algorithm is a plain exposure and
	// carries no membership.
	algorithm, ok := dict.Get("algorithm.name")
	if !ok || algorithm == "" {
		algorithm = "exposure"
	}
	if algorithm != "exposure" && obs.MemberSet.Len() > 0 {
		dict.Set("members", strings.Join(obs.MemberSet.Sorted(), " "))
	} else {
		dict.Delete("members")
	}

	if name, ok := dict.Get("provenance.name"); ok && name != "" && plane.InputSet.Len() > 0 {
		dict.Set("provenance.inputs", strings.Join(plane.InputSet.Sorted(), " "))
	}

	var b bytes.Buffer
	for _, key := range dict.Keys() {
		value, _ := dict.Get(key)
		fmt.Fprintf(&b, "%-30s = %s\n", key, value)
	}
	for _, uri := range plane.Artifacts.Keys() {
		artifact, _ := plane.Artifacts.Get(uri)
		fmt.Fprintf(&b, "\n?%s\n", uri)
		for _, key := range artifact.Overrides.Keys() {
			value, _ := artifact.Overrides.Get(key)
			fmt.Fprintf(&b, "%-30s = %s\n", key, value)
		}
	}
	return b.Bytes()
}
