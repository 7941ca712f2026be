// Command dialectic runs hermeneutic analyses of text documents against an
// LLM and manages their checkpointed sessions.
package main

import "github.com/dan-solli/dialectic/cmd/dialectic/cmd"

func main() {
	cmd.Execute()
}
