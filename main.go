package main

import (
	"fmt"

	"github.com/Merrick1307/chat-core/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
