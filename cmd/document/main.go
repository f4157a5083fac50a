// Command document runs and administers the document versioning service.
package main

import "os"

func main() {
	os.Exit(Run())
}
