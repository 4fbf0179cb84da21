// Command bobsim runs the BOB DRAM simulator with synthetic traffic.
package main

func main() {
	Execute()
}
