// Package main provides the PEView CLI tool.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ZacharyZcR/PEView/internal/cli"
	"github.com/ZacharyZcR/PEView/internal/pe"
	"github.com/edsrzf/mmap-go"
	"github.com/fatih/color"
)

var (
	verbose   = flag.Bool("v", false, "详细模式：显示所有导入/导出函数")
	showRich  = flag.Bool("rich", false, "显示Rich头条目")
	showRes   = flag.Bool("res", false, "显示资源列表")
	showReloc = flag.Bool("reloc", false, "显示重定位块")
	showTLS   = flag.Bool("tls", false, "显示TLS回调")
	showDebug = flag.Bool("debug", false, "显示调试目录（含PDB路径）")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	if err := viewPE(flag.Arg(0)); err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(os.Stderr, "\n错误: %v\n\n", err)
		os.Exit(1)
	}
}

func viewPE(filepath string) error {
	handle, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("打开文件失败: %w", err)
	}
	defer func() { _ = handle.Close() }()

	data, err := mmap.Map(handle, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("映射文件失败: %w", err)
	}
	// The model copies everything it keeps, so unmapping afterwards is
	// safe.
	defer func() { _ = data.Unmap() }()

	file, err := pe.Parse(data)
	if err != nil {
		return fmt.Errorf("解析PE文件失败: %w", err)
	}

	reporter := cli.NewReporter(file, data)
	reporter.SetVerbose(*verbose)
	reporter.SetShowRich(*showRich)
	reporter.SetShowResources(*showRes)
	reporter.SetShowRelocations(*showReloc)
	reporter.SetShowTLS(*showTLS)
	reporter.SetShowDebug(*showDebug)
	reporter.Print()

	return nil
}

func printUsage() {
	fmt.Println("PEView - PE文件结构查看工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  peview [选项] <PE文件>")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
}
