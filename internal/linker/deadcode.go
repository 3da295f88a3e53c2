package linker

import "logicc/internal/compiler"

// pruneUnreachable sweeps the call graph rooted at the entry point
// (main, or the synthesized global initializer when one exists),
// returning order filtered down to only the reachable names. The
// search memoizes visited names so a call cycle (mutual recursion)
// terminates instead of looping forever.
func pruneUnreachable(functions map[string]*compiler.Function, order []string, entry string) []string {
	reachable := reachableFrom(functions, entry)
	pruned := make([]string, 0, len(order))
	for _, name := range order {
		if reachable[name] {
			pruned = append(pruned, name)
		}
	}
	return pruned
}

// reachableFrom walks the Callees edges starting at entry. A function
// is reachable iff some reachable function calls it, transitively.
func reachableFrom(functions map[string]*compiler.Function, entry string) map[string]bool {
	seen := make(map[string]bool)
	var visit func(string)
	visit = func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		fn, ok := functions[name]
		if !ok {
			return
		}
		for callee := range fn.Callees {
			visit(callee)
		}
	}
	visit(entry)
	return seen
}
