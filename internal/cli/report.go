// Package cli provides command-line interface utilities.
package cli

import (
	debugpe "debug/pe"
	"fmt"
	"strings"

	"github.com/ZacharyZcR/PEView/internal/pe"
	"github.com/fatih/color"
)

// Reporter formats and prints a parsed PE model.
type Reporter struct {
	file    *pe.File
	raw     []byte // Original image bytes, for section entropy.
	verbose bool

	showRich  bool
	showRes   bool
	showReloc bool
	showTLS   bool
	showDebug bool
}

// NewReporter creates a new reporter for the given model. raw is the
// original image buffer; it is only read, and the reporter keeps it
// for section entropy, so it must stay valid until Print returns.
func NewReporter(file *pe.File, raw []byte) *Reporter {
	return &Reporter{file: file, raw: raw}
}

// SetVerbose enables verbose mode (show all functions).
func (r *Reporter) SetVerbose(verbose bool) { r.verbose = verbose }

// SetShowRich enables the Rich header section.
func (r *Reporter) SetShowRich(v bool) { r.showRich = v }

// SetShowResources enables the resource listing.
func (r *Reporter) SetShowResources(v bool) { r.showRes = v }

// SetShowRelocations enables the relocation listing.
func (r *Reporter) SetShowRelocations(v bool) { r.showReloc = v }

// SetShowTLS enables the TLS section.
func (r *Reporter) SetShowTLS(v bool) { r.showTLS = v }

// SetShowDebug enables the debug directory section.
func (r *Reporter) SetShowDebug(v bool) { r.showDebug = v }

// Print outputs the complete report.
func (r *Reporter) Print() {
	r.printHeader()
	r.printBasicInfo()
	if r.showRich {
		r.printRich()
	}
	r.printSections()
	r.printDataDirs()
	r.printImports()
	r.printExports()
	if r.showRes {
		r.printResources()
	}
	if r.showReloc {
		r.printRelocations()
	}
	if r.showTLS {
		r.printTLS()
	}
	if r.showDebug {
		r.printDebug()
	}
	r.printSecurity()
}

func (r *Reporter) printHeader() {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Println("\n╔════════════════════════════════════════╗")
	cyan.Println("║          PEView 解析报告               ║")
	cyan.Println("╚════════════════════════════════════════╝")
}

func (r *Reporter) printBasicInfo() {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Println("\n【基本信息】")

	info := r.file.Info()
	nt := r.file.NtHeader()
	if nt == nil {
		fmt.Println("  无NT头：仅DOS头可用")
		return
	}

	arch := "PE32 (32位)"
	var entry uint32
	var subsystem uint16
	if info.IsPE64 {
		arch = "PE32+ (64位)"
		entry = nt.OptionalHeader64.AddressOfEntryPoint
		subsystem = nt.OptionalHeader64.Subsystem
	} else {
		entry = nt.OptionalHeader32.AddressOfEntryPoint
		subsystem = nt.OptionalHeader32.Subsystem
	}

	fmt.Printf("  %-20s: %s\n", "格式", arch)
	fmt.Printf("  %-20s: %s\n", "机器类型", machineName(nt.FileHeader.Machine))
	fmt.Printf("  %-20s: %s\n", "子系统", subsystemName(subsystem))
	fmt.Printf("  %-20s: 0x%X\n", "入口点", entry)
	fmt.Printf("  %-20s: 0x%X\n", "镜像基址", r.file.ImageBase())
	fmt.Printf("  %-20s: %d\n", "节区数量", len(r.file.Sections()))
	if info.HasCOMDescr {
		green := color.New(color.FgGreen)
		green.Printf("  %-20s: 是 (.NET程序集)\n", "CLR")
	}
}

func (r *Reporter) printRich() {
	yellow := color.New(color.FgYellow, color.Bold)
	entries := r.file.RichEntries()
	yellow.Printf("\n【Rich头】(共 %d 条)\n", len(entries))
	if len(entries) == 0 {
		fmt.Println("  未发现Rich头")
		return
	}
	fmt.Printf("  %-10s %-10s %-10s %-10s\n", "偏移", "ProductID", "BuildID", "次数")
	for _, e := range entries {
		fmt.Printf("  0x%08X %-10d %-10d %-10d\n", e.Offset, e.ProductID, e.BuildID, e.Count)
	}
}

func (r *Reporter) printSections() {
	yellow := color.New(color.FgYellow, color.Bold)
	sections := r.file.Sections()
	yellow.Printf("\n【节区信息】(共 %d 个)\n", len(sections))
	if len(sections) == 0 {
		fmt.Println("  未发现节区")
		return
	}

	fmt.Println(strings.Repeat("-", 90))
	fmt.Printf("  %-10s %-12s %-12s %-12s %-8s %-8s\n",
		"名称", "虚拟地址", "虚拟大小", "原始大小", "权限", "熵值")
	fmt.Println(strings.Repeat("-", 90))

	for i := range sections {
		s := &sections[i]
		perms := sectionPermissions(s.Header.Characteristics)
		entropy := pe.SectionEntropy(r.raw, &s.Header)

		permColor := color.New(color.FgWhite)
		if perms == "RWX" {
			permColor = color.New(color.FgRed, color.Bold)
		} else if strings.Contains(perms, "X") {
			permColor = color.New(color.FgYellow)
		}

		fmt.Printf("  %-10s 0x%08X   0x%08X   0x%08X   ",
			s.Name, s.Header.VirtualAddress, s.Header.VirtualSize, s.Header.SizeOfRawData)
		permColor.Printf("%-8s", perms)
		fmt.Printf(" %.2f\n", entropy)
	}
	fmt.Println(strings.Repeat("-", 90))
}

func (r *Reporter) printDataDirs() {
	dirs := r.file.DataDirs()
	if len(dirs) == 0 {
		return
	}
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Printf("\n【数据目录】(共 %d 项)\n", len(dirs))
	names := []string{
		"Export", "Import", "Resource", "Exception", "Security",
		"BaseReloc", "Debug", "Architecture", "GlobalPtr", "TLS",
		"LoadConfig", "BoundImport", "IAT", "DelayImport", "COM",
	}
	for i, d := range dirs {
		if d.Directory.VirtualAddress == 0 && d.Directory.Size == 0 {
			continue
		}
		name := fmt.Sprintf("#%d", i)
		if i < len(names) {
			name = names[i]
		}
		sec := d.SectionName
		if sec == "" {
			sec = "-"
		}
		fmt.Printf("  %-14s RVA: 0x%08X  大小: 0x%08X  节区: %s\n",
			name, d.Directory.VirtualAddress, d.Directory.Size, sec)
	}
}

func (r *Reporter) printImports() {
	yellow := color.New(color.FgYellow, color.Bold)
	imports := r.file.Imports()
	delay := r.file.DelayImports()
	yellow.Printf("\n【导入表】(共 %d 个DLL，%d 个延迟加载)\n", len(imports), len(delay))

	if len(imports) == 0 && len(delay) == 0 {
		fmt.Println("  未发现导入")
		return
	}

	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)
	for i, imp := range imports {
		green.Printf("  %3d. %s (%d 个函数)\n", i+1, imp.Name, len(imp.Functions))
		r.printFunctionList(imp.Functions)
	}
	for i, imp := range delay {
		gray.Printf("  延迟 %3d. %s (%d 个函数)\n", i+1, imp.Name, len(imp.Functions))
	}
	fmt.Println()
}

func (r *Reporter) printFunctionList(funcs []pe.ImportFunction) {
	maxDisplay := 10
	if r.verbose {
		maxDisplay = len(funcs)
	}
	displayCount := len(funcs)
	if displayCount > maxDisplay {
		displayCount = maxDisplay
	}
	for j := 0; j < displayCount; j++ {
		fn := funcs[j]
		if fn.IsByOrdinal {
			fmt.Printf("       - Ordinal_%d\n", fn.Ordinal)
		} else {
			fmt.Printf("       - %s\n", fn.Name)
		}
	}
	if len(funcs) > maxDisplay {
		gray := color.New(color.FgHiBlack)
		gray.Printf("       ... (还有 %d 个函数)\n", len(funcs)-maxDisplay)
	}
}

func (r *Reporter) printExports() {
	yellow := color.New(color.FgYellow, color.Bold)
	export := r.file.Export()
	if export == nil {
		yellow.Println("\n【导出表】(无)")
		return
	}
	yellow.Printf("\n【导出表】%s (共 %d 个函数)\n", export.ModuleName, len(export.Functions))

	maxDisplay := 20
	if r.verbose {
		maxDisplay = len(export.Functions)
	}
	displayCount := len(export.Functions)
	if displayCount > maxDisplay {
		displayCount = maxDisplay
	}

	green := color.New(color.FgGreen)
	for i := 0; i < displayCount; i++ {
		fn := export.Functions[i]
		name := fn.Name
		if name == "" {
			name = fmt.Sprintf("Ordinal_%d", fn.Ordinal)
		}
		if fn.ForwarderName != "" {
			green.Printf("  %3d. %s -> %s\n", i+1, name, fn.ForwarderName)
		} else {
			green.Printf("  %3d. %s (RVA: 0x%X)\n", i+1, name, fn.RVA)
		}
	}
	if len(export.Functions) > maxDisplay {
		gray := color.New(color.FgHiBlack)
		gray.Printf("  ... (还有 %d 个函数)\n", len(export.Functions)-maxDisplay)
	}
}

func (r *Reporter) printResources() {
	yellow := color.New(color.FgYellow, color.Bold)
	rows := r.file.FlattenResources()
	yellow.Printf("\n【资源】(共 %d 项)\n", len(rows))
	for _, row := range rows {
		typ := row.TypeName
		if typ == "" {
			typ = fmt.Sprintf("#%d", row.TypeID)
		}
		name := row.Name
		if name == "" {
			name = fmt.Sprintf("#%d", row.NameID)
		}
		fmt.Printf("  %-16s %-16s 语言: %-6d 大小: %d 字节\n",
			typ, name, row.LangID, len(row.Data))
	}
}

func (r *Reporter) printRelocations() {
	yellow := color.New(color.FgYellow, color.Bold)
	blocks := r.file.Relocations()
	total := 0
	for _, b := range blocks {
		total += len(b.Entries)
	}
	yellow.Printf("\n【重定位】(%d 个块，共 %d 项)\n", len(blocks), total)
	for _, b := range blocks {
		fmt.Printf("  页 0x%08X: %d 项\n", b.Header.VirtualAddress, len(b.Entries))
	}
}

func (r *Reporter) printTLS() {
	yellow := color.New(color.FgYellow, color.Bold)
	tls := r.file.TLS()
	if tls == nil {
		yellow.Println("\n【TLS】(无)")
		return
	}
	yellow.Printf("\n【TLS】(%d 个回调)\n", len(tls.Callbacks))
	for i, cb := range tls.Callbacks {
		fmt.Printf("  回调 %d: 0x%08X\n", i+1, cb)
	}
}

func (r *Reporter) printDebug() {
	yellow := color.New(color.FgYellow, color.Bold)
	entries := r.file.Debug()
	yellow.Printf("\n【调试目录】(共 %d 项)\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  类型 %-3d 大小: %-8d", e.Directory.Type, e.Directory.SizeOfData)
		if e.PDBPath != "" {
			fmt.Printf(" PDB: %s", e.PDBPath)
		}
		fmt.Println()
	}
}

func (r *Reporter) printSecurity() {
	entries := r.file.Security()
	if len(entries) == 0 {
		return
	}
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Printf("\n【数字签名】(共 %d 个证书)\n", len(entries))
	for i, e := range entries {
		fmt.Printf("  %d. 偏移: 0x%08X  长度: %d  类型: 0x%04X\n",
			i+1, e.Offset, e.Header.Length, e.Header.CertificateType)
	}
}

func machineName(machine uint16) string {
	switch machine {
	case debugpe.IMAGE_FILE_MACHINE_I386:
		return "x86 (32位)"
	case debugpe.IMAGE_FILE_MACHINE_AMD64:
		return "x64 (64位)"
	case debugpe.IMAGE_FILE_MACHINE_ARM:
		return "ARM"
	case debugpe.IMAGE_FILE_MACHINE_ARM64:
		return "ARM64"
	default:
		return fmt.Sprintf("未知 (0x%X)", machine)
	}
}

func subsystemName(subsystem uint16) string {
	switch subsystem {
	case debugpe.IMAGE_SUBSYSTEM_WINDOWS_GUI:
		return "Windows GUI"
	case debugpe.IMAGE_SUBSYSTEM_WINDOWS_CUI:
		return "Windows 控制台"
	case debugpe.IMAGE_SUBSYSTEM_NATIVE:
		return "Native"
	default:
		return fmt.Sprintf("未知 (0x%X)", subsystem)
	}
}

func sectionPermissions(c uint32) string {
	var perms [3]rune
	perms[0] = '-'
	perms[1] = '-'
	perms[2] = '-'

	if c&debugpe.IMAGE_SCN_MEM_READ != 0 {
		perms[0] = 'R'
	}
	if c&debugpe.IMAGE_SCN_MEM_WRITE != 0 {
		perms[1] = 'W'
	}
	if c&debugpe.IMAGE_SCN_MEM_EXECUTE != 0 {
		perms[2] = 'X'
	}

	return string(perms[:])
}
