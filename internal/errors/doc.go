// Package errors provides structured, actionable error messages for the
// reconcile tool.
//
// Library packages return plain wrapped errors with sentinels. At the edge,
// the CLI turns them into coded errors that:
//   - Show the document location (file, line, column) with context lines
//   - Explain what went wrong in plain language
//   - Suggest how to fix the problem
//
// # Error Categories
//
//   - patch: Patch application errors (invalid target, malformed patch)
//   - verify: Reconciliation verification failures
//   - document: Tree document errors (syntax, node shapes, state values)
//   - config: Configuration errors
//   - protocol: Wire format errors
//   - registry: Missing handlers or render functions
//
// # Error Codes
//
// Each error has a code (e.g., "R001") that maps to a short message and a
// detailed explanation. Classify picks the code for a library error.
//
// # Usage
//
//	err := errors.Classify(loadErr).WithFile("tree.yaml")
//	fmt.Fprint(os.Stderr, err.Format())
//	// Output:
//	// ERROR R011: Unknown node shape
//	//
//	//   tree.yaml:3:5
//	//
//	//        2 │ children:
//	//   →    3 │   - elemnt: li
//	//          │     ^
//	//        4 │     children: [a]
//	//
//	//   A node must be a mapping with exactly one of element, text,
//	//   fragment or component, or a plain string for text.
package errors
