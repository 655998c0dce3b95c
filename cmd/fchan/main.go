// Command fchan inspects files through read-only channels.
package main

func main() {
	Execute()
}
