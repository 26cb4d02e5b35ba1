package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

var bannerLines = []string{
	`                             __                    __    `,
	`    ___  ___ ____  ___ ____/ /  ___ ____  ___/ /__`,
	`   / _ \/ _ '/ _ \/ -_) __/ _ \/ _ '/ _ \/ _  (_-<`,
	`  / .__/\_,_/ .__/\__/_/ /_//_/\_,_/_//_/\_,_/___/`,
	` /_/       /_/                                     `,
}

// animateBanner prints the startup banner in alternating colours, one frame
// per line pair. frames 0 prints a single static frame.
func animateBanner(frames int) {
	cyan := color.New(color.FgCyan)
	red := color.New(color.FgHiRed)
	for frame := 0; ; frame++ {
		for i, line := range bannerLines {
			if (i+frame)%2 == 0 {
				cyan.Println(line)
			} else {
				red.Println(line)
			}
		}
		if frame >= frames {
			break
		}
		time.Sleep(120 * time.Millisecond)
		// redraw over the previous frame
		fmt.Printf("\033[%dA", len(bannerLines))
	}
	fmt.Println()
}
