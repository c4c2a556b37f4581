// Package errors provides coded, actionable errors for transit.
//
// Structural problems in a project (route collisions, unsupported route
// sources, a broken transit.json) are reported with a stable code, the files
// involved, and a hint on how to fix them. They are raised at scan or load
// time, never while serving a request.
//
// # Usage
//
//	err := errors.New("E202").
//	    WithFiles("app/routes/users/[id].go", "app/routes/users/[id]/index.go").
//	    WithDetail("Both files resolve to /users/:id")
//
//	fmt.Println(err.Format())
package errors
