// Command fintrack runs the personal finance chat bot.
package main

func main() {
	Execute()
}
