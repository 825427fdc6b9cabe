// churnctl 离线工具：校验输入、本地预测、查看模型与预测日志
package main

import (
	"context"
	"fmt"
	"os"
)

var version = "v0.0.1-default"

func main() {
	app := newApp(os.Stdin, os.Stdout)
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "churnctl: %v\n", err)
		os.Exit(1)
	}
}
