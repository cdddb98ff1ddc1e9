// Command exporter runs data exports from the command line, straight
// against the document store, and writes the files into a directory.
//
// Usage:
//
//	# Export one resident's data as a single JSON report
//	exporter export --project p1 --user u1
//
//	# CSV, one file per category
//	exporter export --project p1 --user u1 --categories orders,bookings --format csv --out ./out
//
//	# Several residents, one set of files each
//	exporter export --project p1 --users u1,u2,u3 --categories guestPasses
package main

func main() {
	Execute()
}
