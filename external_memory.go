package wsi

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/sys/unix"

	"github.com/vklayer/wsi/internal/wsialloc"
	"github.com/vklayer/wsi/internal/wsierr"
)

// importedPlane is one VkDeviceMemory bound from a dma-buf fd, along with
// the fd it was imported from. destroyImportedPlanes frees the memory only;
// it does not close the fd, which the successful import handed to the
// driver.
type importedPlane struct {
	fd     int
	memory vk.DeviceMemory
}

// importDmaBufImage binds image to the planes described by alloc, importing
// each unique fd as a VkDeviceMemory via VK_EXT_external_memory_dma_buf and
// binding it with VkBindImageMemory2 (disjoint planes each get their own
// VkDeviceMemory; a non-disjoint allocation shares one memory object across
// planes at alloc.Offsets). Grounded on the Wayland backend's
// allocate_plane_memory/internal_bind_swapchain_image
// (original_source/wsi/wayland/swapchain.cpp) and generalised for DRM's
// identical disjoint/non-disjoint bind.
func importDmaBufImage(dsd *DeviceSideData, image vk.Image, alloc wsialloc.Result) ([]importedPlane, error) {
	device := dsd.Device

	if alloc.IsDisjoint {
		planes := make([]importedPlane, 0, alloc.PlaneCount)
		for p := 0; p < alloc.PlaneCount; p++ {
			mem, err := importMemoryFd(dsd, image, alloc.BufferFDs[p])
			if err != nil {
				destroyImportedPlanes(device, planes)
				return nil, err
			}
			planes = append(planes, importedPlane{fd: alloc.BufferFDs[p], memory: mem})
		}
		if err := bindDisjointPlanes(device, image, planes, alloc); err != nil {
			destroyImportedPlanes(device, planes)
			return nil, err
		}
		return planes, nil
	}

	mem, err := importMemoryFd(dsd, image, alloc.BufferFDs[0])
	if err != nil {
		return nil, err
	}
	if ret := vk.BindImageMemory(device, image, mem, 0); wsierr.IsError(ret) {
		vk.FreeMemory(device, mem, nil)
		return nil, wrapResult(ret)
	}
	return []importedPlane{{fd: alloc.BufferFDs[0], memory: mem}}, nil
}

// importMemoryFd picks the lowest-set bit of fd's own VkMemoryFdPropertiesKHR
// (the image's requirements play no part) and sizes the allocation from the
// fd's real byte length via lseek(fd, 0, SEEK_END), then allocates a
// VkDeviceMemory that takes ownership of fd. Grounded on
// original_source/wsi/external_memory.cpp's get_fd_mem_type_index and
// import_plane_memory.
func importMemoryFd(dsd *DeviceSideData, image vk.Image, fd int) (vk.DeviceMemory, error) {
	device := dsd.Device

	var fdProps vk.MemoryFdPropertiesKHR
	fdProps.SType = vk.StructureTypeMemoryFdPropertiesKhr
	if ret := vk.GetMemoryFdPropertiesKHR(device, vk.ExternalMemoryHandleTypeDmaBufBitExt, fd, &fdProps); wsierr.IsError(ret) {
		return vk.DeviceMemory(vk.NullHandle), wrapResult(ret)
	}
	fdProps.Deref()

	typeIndex, ok := firstSetBit(fdProps.MemoryTypeBits)
	if !ok {
		return vk.DeviceMemory(vk.NullHandle), wsierr.New(wsierr.KindOutOfDeviceMemory, vk.ErrorOutOfDeviceMemory)
	}

	fdSize, err := unix.Seek(fd, 0, unix.SEEK_END)
	if err != nil {
		return vk.DeviceMemory(vk.NullHandle), wsierr.Wrap(wsierr.KindOutOfHostMemory, err)
	}

	importInfo := vk.ImportMemoryFdInfoKHR{
		SType:      vk.StructureTypeImportMemoryFdInfoKhr,
		HandleType: vk.ExternalMemoryHandleTypeDmaBufBitExt,
		Fd:         int32(fd),
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(fdSize),
		MemoryTypeIndex: typeIndex,
		PNext:           unsafe.Pointer(&importInfo),
	}

	var mem vk.DeviceMemory
	if ret := vk.AllocateMemory(device, &allocInfo, nil, &mem); wsierr.IsError(ret) {
		return vk.DeviceMemory(vk.NullHandle), wrapResult(ret)
	}
	return mem, nil
}

// bindDisjointPlanes binds every plane of image to its own VkDeviceMemory in
// a single VkBindImageMemory2 call, one VkBindImagePlaneMemoryInfo per plane.
func bindDisjointPlanes(device vk.Device, image vk.Image, planes []importedPlane, alloc wsialloc.Result) error {
	planeAspects := []vk.ImageAspectFlagBits{
		vk.ImageAspectPlane0Bit, vk.ImageAspectPlane1Bit, vk.ImageAspectPlane2Bit,
	}
	binds := make([]vk.BindImageMemoryInfo, len(planes))
	planeInfos := make([]vk.BindImagePlaneMemoryInfo, len(planes))
	for p := range planes {
		planeInfos[p] = vk.BindImagePlaneMemoryInfo{
			SType:      vk.StructureTypeBindImagePlaneMemoryInfo,
			PlaneAspect: planeAspects[p],
		}
		binds[p] = vk.BindImageMemoryInfo{
			SType:        vk.StructureTypeBindImageMemoryInfo,
			Image:        image,
			Memory:       planes[p].memory,
			MemoryOffset: vk.DeviceSize(alloc.Offsets[p]),
			PNext:        unsafe.Pointer(&planeInfos[p]),
		}
	}
	ret := vk.BindImageMemory2(device, uint32(len(binds)), binds)
	if wsierr.IsError(ret) {
		return wrapResult(ret)
	}
	return nil
}

func destroyImportedPlanes(device vk.Device, planes []importedPlane) {
	seen := map[vk.DeviceMemory]bool{}
	for _, p := range planes {
		if p.memory == vk.DeviceMemory(vk.NullHandle) || seen[p.memory] {
			continue
		}
		seen[p.memory] = true
		vk.FreeMemory(device, p.memory, nil)
	}
}

// imageDrmFormatModifierExplicitCreateInfo builds the pNext chain entry
// needed to create an image over an externally-allocated DRM-modified
// buffer: one VkSubresourceLayout per plane plus the external-memory and
// modifier chain links, per
// original_source/wsi/wayland/swapchain.cpp's image_creation_parameters.
func imageDrmFormatModifierExplicitCreateInfo(alloc wsialloc.Result) (vk.ExternalMemoryImageCreateInfo, vk.ImageDrmFormatModifierExplicitCreateInfoEXT, []vk.SubresourceLayout) {
	layouts := make([]vk.SubresourceLayout, alloc.PlaneCount)
	for p := 0; p < alloc.PlaneCount; p++ {
		layouts[p] = vk.SubresourceLayout{
			Offset:     vk.DeviceSize(alloc.Offsets[p]),
			RowPitch:   vk.DeviceSize(alloc.AverageRowStrides[p]),
		}
	}
	external := vk.ExternalMemoryImageCreateInfo{
		SType:              vk.StructureTypeExternalMemoryImageCreateInfo,
		HandleTypes:        vk.ExternalMemoryHandleTypeFlags(vk.ExternalMemoryHandleTypeDmaBufBitExt),
	}
	modInfo := vk.ImageDrmFormatModifierExplicitCreateInfoEXT{
		SType:               vk.StructureTypeImageDrmFormatModifierExplicitCreateInfoExt,
		DrmFormatModifier:   alloc.Format.Modifier,
		DrmFormatModifierPlaneCount: uint32(alloc.PlaneCount),
		PPlaneLayouts:       layouts,
	}
	return external, modInfo, layouts
}
