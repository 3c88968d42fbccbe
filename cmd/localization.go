package cmd

import "github.com/ndn8144/AdbInstallerApp-sub001/internal/i18n"

// applyCommandLocalization updates command and flag descriptions after i18n is initialized.
func applyCommandLocalization() {
	// Root command metadata and flags.
	rootCmd.Short = i18n.T("cmd.root.short")
	rootCmd.Long = i18n.T("cmd.root.long")

	if flag := rootCmd.PersistentFlags().Lookup("config"); flag != nil {
		flag.Usage = i18n.T("flags.config")
	}
	if flag := rootCmd.PersistentFlags().Lookup("verbose"); flag != nil {
		flag.Usage = i18n.T("flags.verbose")
	}
	if flag := rootCmd.PersistentFlags().Lookup("lang"); flag != nil {
		flag.Usage = i18n.T("flags.lang")
	}
	if flag := rootCmd.PersistentFlags().Lookup("adb-path"); flag != nil {
		flag.Usage = i18n.T("flags.adbPath")
	}
	if flag := rootCmd.PersistentFlags().Lookup("error-report"); flag != nil {
		flag.Usage = i18n.T("flags.errorReport")
	}

	// Command descriptions.
	devicesCmd.Short = i18n.T("cmd.devices.short")
	devicesCmd.Long = i18n.T("cmd.devices.long")

	installCmd.Short = i18n.T("cmd.install.short")
	installCmd.Long = i18n.T("cmd.install.long")

	uninstallCmd.Short = i18n.T("cmd.uninstall.short")
	uninstallCmd.Long = i18n.T("cmd.uninstall.long")

	packagesCmd.Short = i18n.T("cmd.packages.short")
	packagesCmd.Long = i18n.T("cmd.packages.long")

	scanCmd.Short = i18n.T("cmd.scan.short")
	scanCmd.Long = i18n.T("cmd.scan.long")

	infoCmd.Short = i18n.T("cmd.info.short")
	infoCmd.Long = i18n.T("cmd.info.long")

	watchCmd.Short = i18n.T("cmd.watch.short")
	watchCmd.Long = i18n.T("cmd.watch.long")

	logsCmd.Short = i18n.T("cmd.logs.short")
	logsCmd.Long = i18n.T("cmd.logs.long")

	doctorCmd.Short = i18n.T("cmd.doctor.short")
	doctorCmd.Long = i18n.T("cmd.doctor.long")

	initCmd.Short = i18n.T("cmd.init.short")
	initCmd.Long = i18n.T("cmd.init.long")

	versionCmd.Short = i18n.T("cmd.version.short")
	versionCmd.Long = i18n.T("cmd.version.long")
}
