//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: the Win32 Job Object / Toolhelp32 helpers in
// ormasoftchile's cli-replay (internal/platform and cmd/exec_windows.go).

package procwrap

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// createJobObjectWithPort creates an unnamed Job Object, associates it with
// a freshly created I/O completion port so Wait can observe the job's
// JOB_OBJECT_MSG_EXIT_PROCESS/JOB_OBJECT_MSG_ACTIVE_PROCESS_ZERO
// notifications, and optionally requests kill-on-job-close semantics.
func createJobObjectWithPort(killOnClose bool) (job, port windows.Handle, err error) {
	job, err = windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("procwrap: CreateJobObject: %w", err)
	}

	port, err = windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 1)
	if err != nil {
		_ = windows.CloseHandle(job)
		return 0, 0, fmt.Errorf("procwrap: CreateIoCompletionPort: %w", err)
	}

	assoc := windows.JOBOBJECT_ASSOCIATE_COMPLETION_PORT{
		CompletionKey:  uintptr(job),
		CompletionPort: port,
	}
	if err := windows.SetInformationJobObject(
		job,
		windows.JobObjectAssociateCompletionPortInformation,
		uintptr(unsafe.Pointer(&assoc)),
		uint32(unsafe.Sizeof(assoc)),
	); err != nil {
		_ = windows.CloseHandle(port)
		_ = windows.CloseHandle(job)
		return 0, 0, fmt.Errorf("procwrap: associate completion port: %w", err)
	}

	if killOnClose {
		var info windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION
		info.BasicLimitInformation.LimitFlags = windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE
		if err := windows.SetInformationJobObject(
			job,
			windows.JobObjectExtendedLimitInformation,
			uintptr(unsafe.Pointer(&info)),
			uint32(unsafe.Sizeof(info)),
		); err != nil {
			_ = windows.CloseHandle(port)
			_ = windows.CloseHandle(job)
			return 0, 0, fmt.Errorf("procwrap: set kill-on-job-close: %w", err)
		}
	}

	return job, port, nil
}

// assignAndResume assigns the process identified by pid to job, then
// resumes every one of its threads, unless skipResume is true because the
// caller explicitly requested CREATE_SUSPENDED themselves.
func assignAndResume(job windows.Handle, pid uint32, skipResume bool) error {
	handle, err := windows.OpenProcess(windows.PROCESS_ALL_ACCESS, false, pid)
	if err != nil {
		return fmt.Errorf("procwrap: OpenProcess(%d): %w", pid, err)
	}
	defer func() { _ = windows.CloseHandle(handle) }()

	if err := windows.AssignProcessToJobObject(job, handle); err != nil {
		return fmt.Errorf("procwrap: AssignProcessToJobObject(%d): %w", pid, err)
	}

	if !skipResume {
		resumeProcessThreads(pid)
	}
	return nil
}

// resumeProcessThreads enumerates every thread owned by pid via a
// Toolhelp32 snapshot and resumes each one. This is the standard (if
// unlovely) way to resume a process started with CREATE_SUSPENDED, since
// Win32 offers no "resume process" call, only per-thread ResumeThread.
func resumeProcessThreads(pid uint32) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return
	}
	defer func() { _ = windows.CloseHandle(snapshot) }()

	var te windows.ThreadEntry32
	te.Size = uint32(unsafe.Sizeof(te))

	for err = windows.Thread32First(snapshot, &te); err == nil; err = windows.Thread32Next(snapshot, &te) {
		if te.OwnerProcessID != pid {
			continue
		}
		th, openErr := windows.OpenThread(windows.THREAD_SUSPEND_RESUME, false, te.ThreadID)
		if openErr != nil {
			continue
		}
		_, _ = windows.ResumeThread(th)
		_ = windows.CloseHandle(th)
	}
}

// waitOnJobPort blocks (or polls, if timeoutMillis is 0) for one completion
// packet from port, reporting whether the job has no remaining active
// processes (JOB_OBJECT_MSG_ACTIVE_PROCESS_ZERO) or more draining remains
// to be done.
func waitOnJobPort(port windows.Handle, timeoutMillis uint32) (done bool, err error) {
	var bytes uint32
	var key uintptr
	var overlapped *windows.Overlapped

	err = windows.GetQueuedCompletionStatus(port, &bytes, &key, &overlapped, timeoutMillis)
	if err != nil {
		if err == windows.WAIT_TIMEOUT {
			return false, nil
		}
		return false, fmt.Errorf("procwrap: GetQueuedCompletionStatus: %w", err)
	}
	return bytes == windows.JOB_OBJECT_MSG_ACTIVE_PROCESS_ZERO, nil
}
