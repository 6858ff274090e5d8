package detect

// pipeline is the fixed detector order. Earlier stages win name collisions.
var pipeline = []func(SignalBundle) []Detection{
	func(b SignalBundle) []Detection { return detectHeaders(b.Headers) },
	func(b SignalBundle) []Detection { return detectCDNs(b.Headers) },
	func(b SignalBundle) []Detection { return detectHTML(b.Body) },
	func(b SignalBundle) []Detection { return detectBody(b.Body) },
	func(b SignalBundle) []Detection { return detectRobots(b.Robots) },
}

// Detect runs every detector over b and returns the de-duplicated result.
// The first Detection for a name is kept even if a later one has a version.
// The result is never nil.
func Detect(b SignalBundle) []Detection {
	var all []Detection
	for _, stage := range pipeline {
		all = append(all, stage(b)...)
	}
	return dedupe(all)
}

func dedupe(in []Detection) []Detection {
	out := make([]Detection, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, d := range in {
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		out = append(out, d)
	}
	return out
}

// Names lists detection names in order.
func Names(ds []Detection) []string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
	}
	return names
}
