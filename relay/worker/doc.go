package worker

/*
	This package contains the core part of the delivery process
	* Launcher / Driver for one request: requestProcessor.go
	* Calling plugins: pluginManager.go
	* Failure taxonomy: errors.go
	* Fetch providers: downloader package
	* File splitting: segment package
*/
